// Package repository содержит хранилища учётных записей и корзин пользователей.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/bookbazar/internal/model"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим именем.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnsupportedURI возвращается для строки подключения с неизвестной схемой.
	ErrUnsupportedURI = errors.New("unsupported storage uri")
)

// Store объединяет хранилище учётных записей и хранилище корзин.
type Store interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error
	CreateUser(ctx context.Context, username string, passwordHash []byte) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetCart(ctx context.Context, username string) (model.Cart, error)
	ReplaceCart(ctx context.Context, username string, cart model.Cart) error
}

// Options содержит параметры, специфичные для отдельных хранилищ.
type Options struct {
	MongoDatabase string
}

// Open создаёт хранилище по схеме строки подключения:
// postgres:// и postgresql:// — PostgreSQL, mongodb:// и mongodb+srv:// — MongoDB,
// sqlite://<путь> — файл SQLite, пустая строка — хранилище в памяти.
func Open(ctx context.Context, uri string, opts Options) (Store, error) {
	switch {
	case uri == "":
		return NewMemoryRepository(), nil
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return NewPostgresRepository(uri)
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return NewMongoRepository(ctx, uri, opts.MongoDatabase)
	case strings.HasPrefix(uri, "sqlite://"):
		path := strings.TrimPrefix(uri, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedURI)
		}
		return NewSQLiteRepository(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURI, redact(uri))
	}
}

func redact(uri string) string {
	if i := strings.Index(uri, "://"); i >= 0 {
		return uri[:i+3] + "..."
	}
	return "..."
}

func encodeCart(cart model.Cart) ([]byte, error) {
	if cart == nil {
		cart = model.Cart{}
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}
	return data, nil
}

func decodeCart(data []byte) (model.Cart, error) {
	var cart model.Cart
	if len(data) > 0 {
		if err := json.Unmarshal(data, &cart); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
	}
	if cart == nil {
		cart = model.Cart{}
	}
	return cart, nil
}
