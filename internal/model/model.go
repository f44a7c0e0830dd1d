// Package model содержит доменные сущности книжного магазина BookBazar.
package model

import (
	"math"
	"time"
)

// Book описывает книгу каталога. Книги загружаются при старте и не изменяются.
type Book struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
}

// User представляет зарегистрированного покупателя.
type User struct {
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// CartItem описывает одну позицию корзины: снимок книги и количество.
type CartItem struct {
	BookID   int     `json:"id" bson:"id"`
	Title    string  `json:"title" bson:"title"`
	Author   string  `json:"author" bson:"author"`
	Price    float64 `json:"price" bson:"price"`
	Image    string  `json:"image" bson:"image"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

// NewCartItem создаёт позицию корзины для книги с количеством 1.
func NewCartItem(b Book) CartItem {
	return CartItem{
		BookID:   b.ID,
		Title:    b.Title,
		Author:   b.Author,
		Price:    b.Price,
		Image:    b.Image,
		Quantity: 1,
	}
}

// SubtotalCents возвращает стоимость позиции в центах.
func (i CartItem) SubtotalCents() int64 {
	return priceCents(i.Price) * int64(i.Quantity)
}

// Subtotal возвращает стоимость позиции.
func (i CartItem) Subtotal() float64 {
	return float64(i.SubtotalCents()) / 100
}

// Cart — упорядоченный список позиций корзины, не более одной позиции на книгу.
type Cart []CartItem

// Count возвращает суммарное количество экземпляров в корзине.
func (c Cart) Count() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

// TotalCents возвращает сумму корзины в центах.
func (c Cart) TotalCents() int64 {
	var total int64
	for _, item := range c {
		total += item.SubtotalCents()
	}
	return total
}

// Total возвращает сумму корзины.
func (c Cart) Total() float64 {
	return float64(c.TotalCents()) / 100
}

func priceCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// Customer содержит данные покупателя, введённые при оформлении заказа.
type Customer struct {
	Name          string
	Email         string
	Address       string
	PaymentMethod string
}

// Order описывает оформленный заказ. Заказы не сохраняются.
type Order struct {
	ID                 string
	Username           string
	Customer           Customer
	Items              Cart
	PlacedAt           time.Time
	NotificationFailed bool
}

// Total возвращает сумму заказа.
func (o *Order) Total() float64 {
	return o.Items.Total()
}

// ItemCount возвращает количество экземпляров в заказе.
func (o *Order) ItemCount() int {
	return o.Items.Count()
}

// EventKind описывает тип события для уведомлений.
type EventKind string

const (
	EventUserRegistered EventKind = "UserRegistered"
	EventUserLoggedIn   EventKind = "UserLoggedIn"
	EventUserLoggedOut  EventKind = "UserLoggedOut"
	EventCartChanged    EventKind = "CartChanged"
	EventOrderPlaced    EventKind = "OrderPlaced"
)

// Event — событие, о котором отправляется уведомление.
type Event struct {
	Kind     EventKind
	Username string
	At       time.Time
	Detail   string
	Order    *Order
}
