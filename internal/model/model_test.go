package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartTotals(t *testing.T) {
	tests := []struct {
		name      string
		cart      Cart
		wantCount int
		wantCents int64
		wantTotal float64
	}{
		{
			name: "empty",
		},
		{
			name: "single line",
			cart: Cart{
				{BookID: 1, Price: 12.99, Quantity: 2},
			},
			wantCount: 2,
			wantCents: 2598,
			wantTotal: 25.98,
		},
		{
			name: "several lines",
			cart: Cart{
				{BookID: 1, Price: 12.99, Quantity: 1},
				{BookID: 3, Price: 13.99, Quantity: 3},
				{BookID: 7, Price: 13.50, Quantity: 1},
			},
			wantCount: 5,
			wantCents: 1299 + 3*1399 + 1350,
			wantTotal: 68.46,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCount, tt.cart.Count())
			assert.Equal(t, tt.wantCents, tt.cart.TotalCents())
			assert.InDelta(t, tt.wantTotal, tt.cart.Total(), 0.0001)

			// повторное чтение не меняет результат
			assert.Equal(t, tt.cart.TotalCents(), tt.cart.TotalCents())
		})
	}
}

func TestCartTotal_MatchesSumOfSubtotals(t *testing.T) {
	cart := Cart{
		{BookID: 2, Price: 14.99, Quantity: 4},
		{BookID: 5, Price: 16.99, Quantity: 2},
	}

	var sum float64
	for _, item := range cart {
		sum += item.Price * float64(item.Quantity)
	}

	assert.InDelta(t, sum, cart.Total(), 0.001)
}

func TestNewCartItem(t *testing.T) {
	b := Book{ID: 4, Title: "Pride and Prejudice", Author: "Jane Austen", Price: 11.99, Image: "images/pride.jpg"}

	item := NewCartItem(b)

	assert.Equal(t, 4, item.BookID)
	assert.Equal(t, "Pride and Prejudice", item.Title)
	assert.Equal(t, 1, item.Quantity)
	assert.InDelta(t, 11.99, item.Subtotal(), 0.0001)
}

func TestOrderTotals(t *testing.T) {
	o := &Order{Items: Cart{{BookID: 1, Price: 10, Quantity: 3}}}

	assert.Equal(t, 3, o.ItemCount())
	assert.InDelta(t, 30.0, o.Total(), 0.0001)
}
