package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmeshcher/bookbazar/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется для локального
// запуска без внешнего хранилища и в тестах.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
	carts map[string]model.Cart
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]model.User),
		carts: make(map[string]model.Cart),
	}
}

// Name возвращает название хранилища.
func (r *MemoryRepository) Name() string {
	return "memory"
}

// Ping всегда успешен.
func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

// Close ничего не делает.
func (r *MemoryRepository) Close() error {
	return nil
}

// CreateUser создаёт пользователя, если имя ещё не занято.
func (r *MemoryRepository) CreateUser(_ context.Context, username string, passwordHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[username]; ok {
		return fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	r.users[username] = model.User{
		Username:     username,
		PasswordHash: append([]byte(nil), passwordHash...),
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

// GetUserByUsername возвращает пользователя по имени.
func (r *MemoryRepository) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &u, nil
}

// GetCart возвращает копию корзины пользователя.
func (r *MemoryRepository) GetCart(_ context.Context, username string) (model.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append(model.Cart{}, r.carts[username]...), nil
}

// ReplaceCart сохраняет копию корзины пользователя.
func (r *MemoryRepository) ReplaceCart(_ context.Context, username string, cart model.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[username] = append(model.Cart{}, cart...)
	return nil
}
