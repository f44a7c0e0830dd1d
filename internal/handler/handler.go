// Package handler содержит HTTP-обработчики веб-интерфейса магазина BookBazar.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/bookbazar/internal/catalog"
	"github.com/mmeshcher/bookbazar/internal/middleware"
	"github.com/mmeshcher/bookbazar/internal/model"
	"github.com/mmeshcher/bookbazar/internal/repository"
	"github.com/mmeshcher/bookbazar/internal/service"
	"github.com/mmeshcher/bookbazar/internal/validation"
)

const healthTimeout = 2 * time.Second

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, username, password, confirm string) error
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	Logout(username string)
	FindUser(ctx context.Context, username string) (*model.User, error)
	ListBooks() []model.Book
	FindBook(id int) (model.Book, error)
	GetCart(ctx context.Context, username string) (model.Cart, error)
	CartCount(ctx context.Context, username string) (int, error)
	AddToCart(ctx context.Context, username string, bookID int) (service.CartUpdate, error)
	UpdateCart(ctx context.Context, username string, bookID int, action service.CartAction) (service.CartUpdate, error)
	Checkout(ctx context.Context, username string, customer model.Customer) (*model.Order, error)
	Health(ctx context.Context) service.Health
	Now() time.Time
}

// Handler реализует HTTP-обработчики магазина.
type Handler struct {
	service  Service
	logger   *zap.Logger
	sessions *middleware.SessionManager
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, sessions *middleware.SessionManager) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		sessions: sessions,
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url string, code int) {
	if err := h.sessions.Save(w, r); err != nil {
		h.logger.Error("save flash error", zap.Error(err))
	}
	http.Redirect(w, r, url, code)
}

func (h *Handler) flashAndRedirect(w http.ResponseWriter, r *http.Request, category, message, url string) {
	middleware.AddFlash(r, category, message)
	code := http.StatusFound
	if r.Method == http.MethodPost {
		code = http.StatusSeeOther
	}
	h.redirect(w, r, url, code)
}

func bookIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "bookId"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

// Home отображает главную страницу.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index", &page{Title: "Welcome"})
}

// StaticPage отображает информационную страницу.
func (h *Handler) StaticPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, name, &page{Title: title})
	}
}

// RegisterForm отображает форму регистрации.
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", &page{Title: "Register"})
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	username := formValue(r, "username")
	password := formValue(r, "password")
	confirm := formValue(r, "confirm_password")

	err := h.service.RegisterUser(r.Context(), username, password, confirm)
	if err != nil {
		var vErr *validation.Error
		switch {
		case errors.As(err, &vErr):
			middleware.AddFlash(r, middleware.FlashError, vErr.Message)
		case errors.Is(err, repository.ErrUserExists):
			middleware.AddFlash(r, middleware.FlashError, "Username already exists!")
		default:
			h.serverError(w, r, "register user error", err)
			return
		}
		h.render(w, r, http.StatusOK, "register", &page{Title: "Register", FormUsername: username})
		return
	}

	h.flashAndRedirect(w, r, middleware.FlashSuccess, "Registration successful! Please login.", "/login")
}

// LoginForm отображает форму входа.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", &page{Title: "Login"})
}

// Login выполняет аутентификацию пользователя и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := formValue(r, "username")
	password := formValue(r, "password")

	u, err := h.service.AuthenticateUser(r.Context(), username, password)
	if err != nil {
		var vErr *validation.Error
		switch {
		case errors.As(err, &vErr):
			middleware.AddFlash(r, middleware.FlashError, vErr.Message)
		case errors.Is(err, service.ErrInvalidCredentials):
			middleware.AddFlash(r, middleware.FlashError, "Invalid username or password!")
		default:
			h.serverError(w, r, "login user error", err)
			return
		}
		h.render(w, r, http.StatusOK, "login", &page{Title: "Login", FormUsername: username})
		return
	}

	if err := h.sessions.SetUser(w, r, u.Username); err != nil {
		h.serverError(w, r, "set session error", err)
		return
	}

	h.flashAndRedirect(w, r, middleware.FlashSuccess, fmt.Sprintf("Welcome back, %s!", u.Username), "/books")
}

// Logout завершает сессию пользователя.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	username := middleware.Username(r.Context())
	h.sessions.Clear(w, r)
	h.service.Logout(username)

	name := username
	if name == "" {
		name = "User"
	}
	h.flashAndRedirect(w, r, middleware.FlashInfo, fmt.Sprintf("Goodbye, %s! You have been logged out.", name), "/")
}

// Catalog отображает каталог книг. Для withCart страница показывает счётчик
// корзины и кнопки добавления и требует входа.
func (h *Handler) Catalog(title string, withCart bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := &page{
			Title:    title,
			Books:    h.service.ListBooks(),
			WithCart: withCart,
		}

		if withCart {
			count, err := h.service.CartCount(r.Context(), middleware.Username(r.Context()))
			if err != nil {
				h.serverError(w, r, "cart count error", err)
				return
			}
			p.CartCount = count
		}

		h.render(w, r, http.StatusOK, "books", p)
	}
}

// AddToCart добавляет книгу в корзину пользователя.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	bookID, ok := bookIDParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}

	upd, err := h.service.AddToCart(r.Context(), middleware.Username(r.Context()), bookID)
	if err != nil {
		if errors.Is(err, catalog.ErrBookNotFound) {
			h.flashAndRedirect(w, r, middleware.FlashError, "Book not found!", "/books")
			return
		}
		h.serverError(w, r, "add to cart error", err)
		return
	}

	msg := fmt.Sprintf("\"%s\" added to cart!", upd.Item.Title)
	if upd.Increased {
		msg = fmt.Sprintf("Increased quantity of \"%s\" in cart!", upd.Item.Title)
	}
	h.flashAndRedirect(w, r, middleware.FlashSuccess, msg, "/books")
}

// Cart отображает корзину пользователя.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.Username(r.Context()))
	if err != nil {
		h.serverError(w, r, "get cart error", err)
		return
	}

	h.render(w, r, http.StatusOK, "cart", &page{Title: "Your Cart", Cart: cart, CartCount: cart.Count()})
}

// UpdateCart изменяет количество книги в корзине.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	bookID, ok := bookIDParam(r)
	if !ok {
		h.NotFound(w, r)
		return
	}
	action := service.CartAction(chi.URLParam(r, "action"))

	upd, err := h.service.UpdateCart(r.Context(), middleware.Username(r.Context()), bookID, action)
	if err != nil {
		h.serverError(w, r, "update cart error", err)
		return
	}

	if upd.Removed {
		middleware.AddFlash(r, middleware.FlashInfo, fmt.Sprintf("\"%s\" removed from cart!", upd.Item.Title))
	}
	h.redirect(w, r, "/cart", http.StatusFound)
}

// CheckoutForm отображает форму оформления заказа.
func (h *Handler) CheckoutForm(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.Username(r.Context()))
	if err != nil {
		h.serverError(w, r, "get cart error", err)
		return
	}
	if len(cart) == 0 {
		h.flashAndRedirect(w, r, middleware.FlashError, "Your cart is empty!", "/cart")
		return
	}

	h.render(w, r, http.StatusOK, "checkout", &page{Title: "Checkout", Cart: cart, CartCount: cart.Count()})
}

// ProcessCheckout оформляет заказ и отображает подтверждение.
func (h *Handler) ProcessCheckout(w http.ResponseWriter, r *http.Request) {
	customer := model.Customer{
		Name:          formValue(r, "name"),
		Email:         formValue(r, "email"),
		Address:       formValue(r, "address"),
		PaymentMethod: formValue(r, "payment_method"),
	}

	order, err := h.service.Checkout(r.Context(), middleware.Username(r.Context()), customer)
	if err != nil {
		var vErr *validation.Error
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			h.flashAndRedirect(w, r, middleware.FlashError, "Your cart is empty!", "/cart")
		case errors.As(err, &vErr):
			h.flashAndRedirect(w, r, middleware.FlashError, vErr.Message, "/checkout")
		default:
			h.serverError(w, r, "checkout error", err)
		}
		return
	}

	if order.NotificationFailed {
		middleware.AddFlash(r, middleware.FlashWarning,
			"Your order was placed, but we could not send the order notification. Please keep your order ID for reference.")
	}

	h.render(w, r, http.StatusOK, "confirmation", &page{Title: "Order Confirmed", Order: order})
}

// Account отображает страницу учётной записи.
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	username := middleware.Username(r.Context())

	u, err := h.service.FindUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.sessions.Clear(w, r)
			h.flashAndRedirect(w, r, middleware.FlashError, "Please login to view your account.", "/login")
			return
		}
		h.serverError(w, r, "find user error", err)
		return
	}

	count, err := h.service.CartCount(r.Context(), username)
	if err != nil {
		h.serverError(w, r, "cart count error", err)
		return
	}

	h.render(w, r, http.StatusOK, "account", &page{Title: "My Account", User: u, CartCount: count})
}

type cartCountResponse struct {
	Count int `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// CartCountAPI возвращает количество книг в корзине; 0 для анонимного пользователя.
func (h *Handler) CartCountAPI(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CartCount(r.Context(), middleware.Username(r.Context()))
	if err != nil {
		h.logger.Error("cart count error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "cart unavailable"})
		return
	}

	h.writeJSON(w, http.StatusOK, cartCountResponse{Count: count})
}

// BookAPI возвращает описание книги в формате JSON.
func (h *Handler) BookAPI(w http.ResponseWriter, r *http.Request) {
	bookID, ok := bookIDParam(r)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "book not found"})
		return
	}

	book, err := h.service.FindBook(bookID)
	if err != nil {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "book not found"})
		return
	}

	h.writeJSON(w, http.StatusOK, book)
}

type healthResponse struct {
	Status        string   `json:"status"`
	Timestamp     string   `json:"timestamp"`
	Storage       string   `json:"storage"`
	Catalog       string   `json:"catalog"`
	Notifications []string `json:"notifications"`
	Error         string   `json:"error,omitempty"`
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	st := h.service.Health(ctx)
	resp := healthResponse{
		Status:        "healthy",
		Timestamp:     h.service.Now().Format(time.RFC3339),
		Storage:       st.Storage,
		Catalog:       st.Catalog,
		Notifications: st.Sinks,
	}
	if resp.Notifications == nil {
		resp.Notifications = []string{}
	}

	status := http.StatusOK
	if !st.Healthy() {
		h.logger.Warn("health check failed", zap.Error(st.Err))
		resp.Status = "unhealthy"
		resp.Error = st.Err.Error()
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, resp)
}

// NotFound отображает страницу 404.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "404", &page{Title: "Page Not Found"})
}

// InternalError отображает страницу 500.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, "500", &page{Title: "Something Went Wrong"})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, zap.Error(err), zap.String("uri", r.RequestURI))
	h.InternalError(w, r)
}
