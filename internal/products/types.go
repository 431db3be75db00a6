package products

import "time"

// Product is the item stored in the products table.
type Product struct {
	ProductID   string    `dynamodbav:"product_id" json:"id"` // PK
	Name        string    `dynamodbav:"name" json:"name"`
	Description string    `dynamodbav:"description,omitempty" json:"description"`
	PriceCents  int64     `dynamodbav:"price_cents" json:"priceCents"`
	Stock       int       `dynamodbav:"stock" json:"stock"`
	ImageRef    string    `dynamodbav:"image_ref,omitempty" json:"imageRef,omitempty"`
	IsActive    bool      `dynamodbav:"is_active" json:"isActive"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}
