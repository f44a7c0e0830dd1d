package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/bookbazar/internal/model"
)

// SQLiteRepository хранит учётные записи и корзины в файле SQLite.
// Подходит для запуска на одном узле.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository открывает (или создаёт) БД по пути path и применяет миграции.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations/sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Name возвращает название хранилища.
func (r *SQLiteRepository) Name() string {
	return "sqlite"
}

// Ping проверяет доступность БД.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close закрывает БД.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// CreateUser создаёт нового пользователя.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username string, passwordHash []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByUsername возвращает пользователя по имени.
func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetCart возвращает корзину пользователя.
func (r *SQLiteRepository) GetCart(ctx context.Context, username string) (model.Cart, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT items FROM carts WHERE username = ?`,
		username,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Cart{}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return decodeCart([]byte(raw))
}

// ReplaceCart полностью перезаписывает корзину пользователя.
func (r *SQLiteRepository) ReplaceCart(ctx context.Context, username string, cart model.Cart) error {
	data, err := encodeCart(cart)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO carts (username, items, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (username) DO UPDATE SET items = excluded.items, updated_at = excluded.updated_at`,
		username, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("replace cart: %w", err)
	}
	return nil
}
