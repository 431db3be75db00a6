package aws

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/pkg/errors"
)

// Email is a rendered message ready to send.
type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email through SES v2.
type Mailer struct {
	client SESAPI
	from   string
}

func NewMailer(client SESAPI, from string) *Mailer {
	return &Mailer{client: client, from: from}
}

func (m *Mailer) Send(ctx context.Context, e Email) error {
	body := &sestypes.Body{
		Text: &sestypes.Content{Data: sdkaws.String(e.Text), Charset: sdkaws.String("UTF-8")},
	}
	if e.HTML != "" {
		body.Html = &sestypes.Content{Data: sdkaws.String(e.HTML), Charset: sdkaws.String("UTF-8")}
	}

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: sdkaws.String(m.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{e.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: sdkaws.String(e.Subject), Charset: sdkaws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "send email to %s", e.To)
	}
	return nil
}
