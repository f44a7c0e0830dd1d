// Package service реализует бизнес-логику книжного магазина BookBazar.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/bookbazar/internal/model"
	"github.com/mmeshcher/bookbazar/internal/repository"
	"github.com/mmeshcher/bookbazar/internal/validation"
)

var (
	// ErrInvalidCredentials возвращается при неверном имени пользователя или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmptyCart возвращается при попытке оформить заказ с пустой корзиной.
	ErrEmptyCart = errors.New("cart is empty")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Name() string
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, username string, passwordHash []byte) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetCart(ctx context.Context, username string) (model.Cart, error)
	ReplaceCart(ctx context.Context, username string, cart model.Cart) error
}

// Catalog описывает каталог книг.
type Catalog interface {
	List() []model.Book
	Find(id int) (model.Book, error)
	Source() string
}

// Notifier отправляет уведомления о событиях.
type Notifier interface {
	Notify(event model.Event)
	Deliver(ctx context.Context, event model.Event) error
	Sinks() []string
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo     Repository
	catalog  Catalog
	notifier Notifier

	minPasswordLength int
	bcryptCost        int
	location          *time.Location
	now               func() time.Time
	newOrderID        func(time.Time) string
}

// Option настраивает Service.
type Option func(*Service)

// WithPasswordMinLength задаёт минимальную длину пароля при регистрации.
func WithPasswordMinLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minPasswordLength = n
		}
	}
}

// WithBcryptCost задаёт стоимость хеширования паролей.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithLocation задаёт часовой пояс для отметок времени заказов и уведомлений.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithOrderIDGenerator подменяет генератор идентификаторов заказов.
func WithOrderIDGenerator(gen func(time.Time) string) Option {
	return func(s *Service) {
		s.newOrderID = gen
	}
}

// NewService создаёт новый сервис с указанными хранилищем, каталогом и диспетчером уведомлений.
func NewService(repo Repository, catalog Catalog, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		catalog:           catalog,
		notifier:          notifier,
		minPasswordLength: 6,
		bcryptCost:        defaultBcryptCost,
		location:          time.UTC,
		now:               time.Now,
		newOrderID:        NewOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	return s
}

func (s *Service) event(kind model.EventKind, username string) model.Event {
	return model.Event{
		Kind:     kind,
		Username: username,
		At:       s.now().In(s.location),
	}
}

// RegisterUser регистрирует нового пользователя. Возвращает *validation.Error
// для некорректной формы и repository.ErrUserExists для занятого имени.
func (s *Service) RegisterUser(ctx context.Context, username, password, confirm string) error {
	if err := validation.Registration(username, password, confirm, s.minPasswordLength); err != nil {
		return err
	}

	hashed, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.repo.CreateUser(ctx, username, hashed); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return repository.ErrUserExists
		}
		return err
	}

	s.notifier.Notify(s.event(model.EventUserRegistered, username))
	return nil
}

// AuthenticateUser проверяет имя пользователя и пароль. Для неизвестного
// пользователя и неверного пароля возвращается одна и та же ошибка ErrInvalidCredentials.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	if err := validation.Login(username, password); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !checkPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	s.notifier.Notify(s.event(model.EventUserLoggedIn, username))
	return u, nil
}

// Logout фиксирует выход пользователя.
func (s *Service) Logout(username string) {
	if username == "" {
		return
	}
	s.notifier.Notify(s.event(model.EventUserLoggedOut, username))
}

// FindUser возвращает учётную запись пользователя.
func (s *Service) FindUser(ctx context.Context, username string) (*model.User, error) {
	return s.repo.GetUserByUsername(ctx, username)
}

// Location возвращает часовой пояс магазина.
func (s *Service) Location() *time.Location {
	return s.location
}

// ListBooks возвращает книги каталога в исходном порядке.
func (s *Service) ListBooks() []model.Book {
	return s.catalog.List()
}

// FindBook возвращает книгу по идентификатору.
func (s *Service) FindBook(id int) (model.Book, error) {
	return s.catalog.Find(id)
}

// GetCart возвращает корзину пользователя.
func (s *Service) GetCart(ctx context.Context, username string) (model.Cart, error) {
	cart, err := s.repo.GetCart(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// CartCount возвращает количество экземпляров в корзине. Для анонимного
// пользователя всегда 0.
func (s *Service) CartCount(ctx context.Context, username string) (int, error) {
	if username == "" {
		return 0, nil
	}
	cart, err := s.GetCart(ctx, username)
	if err != nil {
		return 0, err
	}
	return cart.Count(), nil
}

// AddToCart добавляет книгу в корзину или увеличивает количество уже добавленной.
func (s *Service) AddToCart(ctx context.Context, username string, bookID int) (CartUpdate, error) {
	cart, err := s.GetCart(ctx, username)
	if err != nil {
		return CartUpdate{}, err
	}

	cart, upd, err := addItem(cart, bookID, s.catalog.Find)
	if err != nil {
		return CartUpdate{}, err
	}

	if err := s.repo.ReplaceCart(ctx, username, cart); err != nil {
		return CartUpdate{}, fmt.Errorf("save cart: %w", err)
	}

	detail := fmt.Sprintf("added %q", upd.Item.Title)
	if upd.Increased {
		detail = fmt.Sprintf("increased %q to %d", upd.Item.Title, upd.Item.Quantity)
	}
	s.notifyCart(username, detail)

	upd.Cart = cart
	return upd, nil
}

// UpdateCart применяет действие к позиции корзины. Неизвестное действие или
// отсутствующая книга оставляют корзину без изменений.
func (s *Service) UpdateCart(ctx context.Context, username string, bookID int, action CartAction) (CartUpdate, error) {
	cart, err := s.GetCart(ctx, username)
	if err != nil {
		return CartUpdate{}, err
	}

	cart, upd := applyAction(cart, bookID, action)

	if err := s.repo.ReplaceCart(ctx, username, cart); err != nil {
		return CartUpdate{}, fmt.Errorf("save cart: %w", err)
	}

	if upd.Changed {
		s.notifyCart(username, fmt.Sprintf("%s %q", action, upd.Item.Title))
	}

	upd.Cart = cart
	return upd, nil
}

func (s *Service) notifyCart(username, detail string) {
	e := s.event(model.EventCartChanged, username)
	e.Detail = detail
	s.notifier.Notify(e)
}

// Checkout оформляет заказ: проверяет корзину и данные покупателя, очищает
// корзину и отправляет уведомление о заказе. Сбой уведомления не отменяет
// заказ и отражается в Order.NotificationFailed.
func (s *Service) Checkout(ctx context.Context, username string, customer model.Customer) (*model.Order, error) {
	cart, err := s.GetCart(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	if err := validation.Customer(customer); err != nil {
		return nil, err
	}

	placedAt := s.now().In(s.location)
	order := &model.Order{
		ID:       s.newOrderID(placedAt),
		Username: username,
		Customer: customer,
		Items:    cart,
		PlacedAt: placedAt,
	}

	if err := s.repo.ReplaceCart(ctx, username, model.Cart{}); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	e := s.event(model.EventOrderPlaced, username)
	e.At = placedAt
	e.Order = order
	if err := s.notifier.Deliver(ctx, e); err != nil {
		order.NotificationFailed = true
	}

	return order, nil
}

// Health описывает состояние зависимостей сервиса.
type Health struct {
	Storage string
	Catalog string
	Sinks   []string
	Err     error
}

// Healthy сообщает, доступно ли хранилище.
func (h Health) Healthy() bool {
	return h.Err == nil
}

// Health проверяет доступность хранилища.
func (s *Service) Health(ctx context.Context) Health {
	return Health{
		Storage: s.repo.Name(),
		Catalog: s.catalog.Source(),
		Sinks:   s.notifier.Sinks(),
		Err:     s.repo.Ping(ctx),
	}
}

// Now возвращает текущее время в часовом поясе магазина.
func (s *Service) Now() time.Time {
	return s.now().In(s.location)
}

type nopNotifier struct{}

func (nopNotifier) Notify(model.Event) {}

func (nopNotifier) Deliver(context.Context, model.Event) error { return nil }

func (nopNotifier) Sinks() []string { return nil }
