package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/bookbazar/internal/catalog"
	"github.com/mmeshcher/bookbazar/internal/model"
)

func sampleCart() model.Cart {
	return model.Cart{
		{BookID: 1, Title: "The Great Gatsby", Price: 12.99, Quantity: 2},
		{BookID: 3, Title: "1984", Price: 13.99, Quantity: 1},
	}
}

func TestApplyAction(t *testing.T) {
	tests := []struct {
		name        string
		bookID      int
		action      CartAction
		want        model.Cart
		wantRemoved bool
		wantChanged bool
	}{
		{
			name:   "increase",
			bookID: 3,
			action: ActionIncrease,
			want: model.Cart{
				{BookID: 1, Title: "The Great Gatsby", Price: 12.99, Quantity: 2},
				{BookID: 3, Title: "1984", Price: 13.99, Quantity: 2},
			},
			wantChanged: true,
		},
		{
			name:   "decrease above one",
			bookID: 1,
			action: ActionDecrease,
			want: model.Cart{
				{BookID: 1, Title: "The Great Gatsby", Price: 12.99, Quantity: 1},
				{BookID: 3, Title: "1984", Price: 13.99, Quantity: 1},
			},
			wantChanged: true,
		},
		{
			name:   "decrease at one removes",
			bookID: 3,
			action: ActionDecrease,
			want: model.Cart{
				{BookID: 1, Title: "The Great Gatsby", Price: 12.99, Quantity: 2},
			},
			wantRemoved: true,
			wantChanged: true,
		},
		{
			name:   "remove ignores quantity",
			bookID: 1,
			action: ActionRemove,
			want: model.Cart{
				{BookID: 3, Title: "1984", Price: 13.99, Quantity: 1},
			},
			wantRemoved: true,
			wantChanged: true,
		},
		{
			name:   "unknown action",
			bookID: 1,
			action: CartAction("double"),
			want:   sampleCart(),
		},
		{
			name:   "unknown book",
			bookID: 42,
			action: ActionRemove,
			want:   sampleCart(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleCart()

			got, upd := applyAction(in, tt.bookID, tt.action)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRemoved, upd.Removed)
			assert.Equal(t, tt.wantChanged, upd.Changed)
			assert.Equal(t, sampleCart(), in, "input cart must not be modified")
		})
	}
}

func TestAddItem(t *testing.T) {
	books := catalog.New(catalog.SampleBooks(), "built-in")

	t.Run("appends new line", func(t *testing.T) {
		got, upd, err := addItem(sampleCart(), 4, books.Find)
		require.NoError(t, err)

		require.Len(t, got, 3)
		assert.Equal(t, 4, got[2].BookID)
		assert.Equal(t, 1, got[2].Quantity)
		assert.Equal(t, "Pride and Prejudice", upd.Item.Title)
		assert.False(t, upd.Increased)
	})

	t.Run("increments existing line without lookup", func(t *testing.T) {
		lookup := func(int) (model.Book, error) {
			t.Fatalf("catalog must not be queried for a book already in the cart")
			return model.Book{}, nil
		}

		got, upd, err := addItem(sampleCart(), 1, lookup)
		require.NoError(t, err)

		require.Len(t, got, 2)
		assert.Equal(t, 3, got[0].Quantity)
		assert.True(t, upd.Increased)
	})

	t.Run("unknown book", func(t *testing.T) {
		got, _, err := addItem(sampleCart(), 99, books.Find)
		assert.ErrorIs(t, err, catalog.ErrBookNotFound)
		assert.Equal(t, sampleCart(), got)
	})

	t.Run("empty cart", func(t *testing.T) {
		got, _, err := addItem(nil, 2, books.Find)
		require.NoError(t, err)
		assert.Equal(t, model.Cart{model.NewCartItem(catalog.SampleBooks()[1])}, got)
	})
}

func TestNewOrderID(t *testing.T) {
	placedAt := time.Date(2026, 1, 2, 23, 59, 0, 0, time.UTC)
	re := regexp.MustCompile(`^BB-20260102-[0-9A-F]{12}$`)

	a := NewOrderID(placedAt)
	b := NewOrderID(placedAt)

	assert.Regexp(t, re, a)
	assert.Regexp(t, re, b)
	assert.NotEqual(t, a, b)
}
