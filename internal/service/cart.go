package service

import (
	"github.com/mmeshcher/bookbazar/internal/model"
)

// CartAction — действие над позицией корзины.
type CartAction string

const (
	ActionIncrease CartAction = "increase"
	ActionDecrease CartAction = "decrease"
	ActionRemove   CartAction = "remove"
)

// CartUpdate описывает результат изменения корзины.
type CartUpdate struct {
	// Item — затронутая позиция в её новом состоянии (для удалённой позиции — до удаления).
	Item model.CartItem
	// Increased — книга уже была в корзине, количество увеличено.
	Increased bool
	// Removed — позиция удалена из корзины.
	Removed bool
	// Changed — корзина изменилась.
	Changed bool
	Cart    model.Cart
}

func indexOf(cart model.Cart, bookID int) int {
	for i, item := range cart {
		if item.BookID == bookID {
			return i
		}
	}
	return -1
}

// addItem увеличивает количество позиции с bookID или добавляет новую позицию
// с количеством 1. Книга запрашивается у find только если её нет в корзине.
func addItem(cart model.Cart, bookID int, find func(int) (model.Book, error)) (model.Cart, CartUpdate, error) {
	out := append(model.Cart(nil), cart...)

	if i := indexOf(out, bookID); i >= 0 {
		out[i].Quantity++
		return out, CartUpdate{Item: out[i], Increased: true, Changed: true}, nil
	}

	book, err := find(bookID)
	if err != nil {
		return cart, CartUpdate{}, err
	}

	item := model.NewCartItem(book)
	out = append(out, item)
	return out, CartUpdate{Item: item, Changed: true}, nil
}

// applyAction применяет action к первой позиции с bookID. Исходный срез не изменяется.
func applyAction(cart model.Cart, bookID int, action CartAction) (model.Cart, CartUpdate) {
	out := append(model.Cart{}, cart...)

	i := indexOf(out, bookID)
	if i < 0 {
		return out, CartUpdate{}
	}

	item := out[i]
	switch action {
	case ActionIncrease:
		out[i].Quantity++
		return out, CartUpdate{Item: out[i], Changed: true}
	case ActionDecrease:
		if item.Quantity > 1 {
			out[i].Quantity--
			return out, CartUpdate{Item: out[i], Changed: true}
		}
		return removeAt(out, i), CartUpdate{Item: item, Removed: true, Changed: true}
	case ActionRemove:
		return removeAt(out, i), CartUpdate{Item: item, Removed: true, Changed: true}
	default:
		return out, CartUpdate{}
	}
}

func removeAt(cart model.Cart, i int) model.Cart {
	return append(cart[:i], cart[i+1:]...)
}
