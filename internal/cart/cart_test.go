package cart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mug(q int) Line {
	return Line{ProductID: "p-mug", Name: "Mug", UnitPriceCents: 1250, Quantity: q}
}

func tee(q int) Line {
	return Line{ProductID: "p-tee", Name: "Tee", UnitPriceCents: 2000, Quantity: q, ImageRef: "tee.png"}
}

func TestAdd_MergesQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(mug(1)))
	require.NoError(t, c.Add(tee(2)))

	again := mug(2)
	again.UnitPriceCents = 9999
	require.NoError(t, c.Add(again))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "p-mug", lines[0].ProductID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, int64(1250), lines[0].UnitPriceCents)

	assert.Equal(t, Totals{SubtotalCents: 3*1250 + 2*2000, ItemCount: 5}, c.Totals())
}

func TestAdd_RejectsInvalidLines(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Add(mug(0)), ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(Line{Quantity: 1}), ErrMissingProduct)
	assert.ErrorIs(t, c.Add(Line{ProductID: "x", Quantity: 1, UnitPriceCents: -1}), ErrInvalidPrice)
	assert.Equal(t, 0, c.Len())
}

func TestSetQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(mug(1)))
	require.NoError(t, c.Add(tee(1)))

	assert.True(t, c.SetQuantity("p-mug", 4))
	l, ok := c.Line("p-mug")
	require.True(t, ok)
	assert.Equal(t, 4, l.Quantity)

	assert.True(t, c.SetQuantity("p-mug", 0))
	_, ok = c.Line("p-mug")
	assert.False(t, ok)

	assert.True(t, c.SetQuantity("p-tee", -3))
	assert.Equal(t, 0, c.Len())

	assert.False(t, c.SetQuantity("p-none", 2))
}

func TestRemoveAndClear(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(mug(1)))
	require.NoError(t, c.Add(tee(1)))

	c.Remove("p-mug")
	c.Remove("p-unknown")
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, "p-tee", c.Lines()[0].ProductID)

	c.Clear()
	assert.Equal(t, Totals{}, c.Totals())
	assert.Empty(t, c.Lines())
}

func TestSnapshotRoundTripKeepsOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(tee(2)))
	require.NoError(t, c.Add(mug(1)))

	data, err := json.Marshal(c)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(data, restored))
	assert.Equal(t, c.Lines(), restored.Lines())
	assert.Equal(t, c.Totals(), restored.Totals())
}

func TestUnmarshal_SanitizesSnapshot(t *testing.T) {
	raw := `{"version":1,"lines":[
		{"productId":"p-mug","name":"Mug","unitPriceCents":1250,"quantity":1},
		{"productId":"p-mug","name":"Mug","unitPriceCents":1250,"quantity":2},
		{"productId":"p-bad","name":"Bad","unitPriceCents":100,"quantity":0},
		{"productId":"","name":"Blank","unitPriceCents":100,"quantity":1}
	]}`

	c := New()
	require.NoError(t, json.Unmarshal([]byte(raw), c))
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, 3, c.Lines()[0].Quantity)
}

func TestUnmarshal_RejectsFutureVersion(t *testing.T) {
	c := New()
	err := json.Unmarshal([]byte(`{"version":9,"lines":[]}`), c)
	require.Error(t, err)
}

func TestCompute(t *testing.T) {
	assert.Equal(t, Totals{}, Compute(nil))
	assert.Equal(t, Totals{SubtotalCents: 5000, ItemCount: 4}, Compute([]Line{mug(2), {ProductID: "x", UnitPriceCents: 1250, Quantity: 2}}))
}
