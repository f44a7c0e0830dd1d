// Package validation содержит функции валидации данных форм.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mmeshcher/bookbazar/internal/model"
)

// MaxPasswordLength — ограничение bcrypt на длину пароля в байтах.
const MaxPasswordLength = 72

// Error описывает ошибку валидации с сообщением для пользователя.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// Registration проверяет форму регистрации. Проверки выполняются по порядку,
// возвращается первая найденная ошибка.
func Registration(username, password, confirm string, minLength int) error {
	if username == "" || password == "" {
		return newError("username", "Username and password are required!")
	}
	if utf8.RuneCountInString(password) < minLength {
		return newError("password", fmt.Sprintf("Password must be at least %d characters long!", minLength))
	}
	if len(password) > MaxPasswordLength {
		return newError("password", fmt.Sprintf("Password must be at most %d characters long!", MaxPasswordLength))
	}
	if password != confirm {
		return newError("confirm_password", "Passwords do not match!")
	}
	return nil
}

// Login проверяет форму входа.
func Login(username, password string) error {
	if username == "" || password == "" {
		return newError("username", "Username and password are required!")
	}
	return nil
}

// Customer проверяет данные покупателя при оформлении заказа.
func Customer(c model.Customer) error {
	if c.Name == "" || c.Email == "" || c.Address == "" || c.PaymentMethod == "" {
		return newError("customer", "All fields are required!")
	}
	if !IsValidEmail(c.Email) {
		return newError("email", "Please enter a valid email address!")
	}
	return nil
}

// IsValidEmail выполняет минимальную проверку формы адреса: непустая часть до "@"
// и точка в доменной части.
func IsValidEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return false
	}
	domain := email[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
