package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/bookbazar/internal/model"
)

// maxSubjectLength — ограничение SNS на длину темы в символах.
const maxSubjectLength = 100

// Message — текст уведомления, готовый к отправке в любой канал.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

// Format формирует уведомление о событии.
func Format(event model.Event) Message {
	at := event.At.Format(time.RFC3339)

	switch event.Kind {
	case model.EventUserRegistered:
		return Message{
			Subject: "New User Registration - BookBazar",
			Body:    fmt.Sprintf("New user registered: %s at %s", event.Username, at),
		}
	case model.EventUserLoggedIn:
		return Message{
			Subject: "User Login - BookBazar",
			Body:    fmt.Sprintf("User %s logged in at %s", event.Username, at),
		}
	case model.EventUserLoggedOut:
		return Message{
			Subject: "User Logout - BookBazar",
			Body:    fmt.Sprintf("User %s logged out at %s", event.Username, at),
		}
	case model.EventCartChanged:
		return Message{
			Subject: "Cart Updated - BookBazar",
			Body:    fmt.Sprintf("User %s updated their cart at %s: %s", event.Username, at, event.Detail),
		}
	case model.EventOrderPlaced:
		if event.Order != nil {
			return formatOrder(event.Order)
		}
	}

	return Message{
		Subject: "BookBazar notification",
		Body:    fmt.Sprintf("Event %s for user %s at %s", event.Kind, event.Username, at),
	}
}

func formatOrder(o *model.Order) Message {
	var b strings.Builder

	b.WriteString("New Order Placed - BookBazar\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", o.ID)
	fmt.Fprintf(&b, "Customer: %s\n", o.Customer.Name)
	fmt.Fprintf(&b, "Email: %s\n", o.Customer.Email)
	fmt.Fprintf(&b, "Username: %s\n", o.Username)
	fmt.Fprintf(&b, "Shipping Address: %s\n", o.Customer.Address)
	fmt.Fprintf(&b, "Payment Method: %s\n", o.Customer.PaymentMethod)
	fmt.Fprintf(&b, "Order Time: %s\n\n", o.PlacedAt.Format(time.RFC3339))
	writeItems(&b, o)

	return Message{
		Subject: "New Order " + o.ID + " - BookBazar",
		Body:    b.String(),
	}
}

// FormatConfirmation формирует письмо-подтверждение заказа для покупателя.
func FormatConfirmation(o *model.Order) Message {
	var b strings.Builder

	fmt.Fprintf(&b, "Hi %s,\n\n", o.Customer.Name)
	fmt.Fprintf(&b, "Thank you for shopping at BookBazar! Your order %s was placed on %s.\n\n",
		o.ID, o.PlacedAt.Format("January 2, 2006 at 15:04 MST"))
	writeItems(&b, o)
	fmt.Fprintf(&b, "\nShipping to: %s\n", o.Customer.Address)
	fmt.Fprintf(&b, "Payment method: %s\n", o.Customer.PaymentMethod)

	return Message{
		Subject: "Your BookBazar order " + o.ID,
		Body:    b.String(),
	}
}

func writeItems(b *strings.Builder, o *model.Order) {
	b.WriteString("Items:\n")
	for _, item := range o.Items {
		fmt.Fprintf(b, "- %s by %s (Qty: %d, Price: $%.2f, Subtotal: %s)\n",
			item.Title, item.Author, item.Quantity, item.Price, formatCents(item.SubtotalCents()))
	}
	fmt.Fprintf(b, "\nTotal Items: %d\n", o.ItemCount())
	fmt.Fprintf(b, "Total: %s\n", formatCents(o.Items.TotalCents()))
}

func formatCents(c int64) string {
	return fmt.Sprintf("$%d.%02d", c/100, c%100)
}

func truncateSubject(s string) string {
	r := []rune(s)
	if len(r) <= maxSubjectLength {
		return s
	}
	return string(r[:maxSubjectLength])
}
