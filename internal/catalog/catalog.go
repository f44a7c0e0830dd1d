// Package catalog предоставляет доступ к каталогу книг, загружаемому при старте сервиса.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mmeshcher/bookbazar/internal/model"
)

// ErrBookNotFound возвращается, если книги с указанным идентификатором нет в каталоге.
var ErrBookNotFound = errors.New("book not found")

// Source описывает источник JSON-файла каталога.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
	String() string
}

// Store хранит неизменяемый каталог книг. Безопасен для параллельного чтения.
type Store struct {
	books  []model.Book
	byID   map[int]int
	source string
}

// New создаёт каталог из готового списка книг.
func New(books []model.Book, source string) *Store {
	s := &Store{
		books:  make([]model.Book, len(books)),
		byID:   make(map[int]int, len(books)),
		source: source,
	}
	copy(s.books, books)
	for i, b := range s.books {
		s.byID[b.ID] = i
	}
	return s
}

// Load читает каталог из источника. При любой ошибке чтения или разбора
// используется встроенный демонстрационный каталог.
func Load(ctx context.Context, src Source, logger *zap.Logger) *Store {
	data, err := src.Read(ctx)
	if err != nil {
		logger.Warn("catalog source unavailable, using built-in sample catalog",
			zap.String("source", src.String()), zap.Error(err))
		return New(SampleBooks(), "built-in")
	}

	books, err := Parse(data)
	if err != nil {
		logger.Warn("catalog is invalid, using built-in sample catalog",
			zap.String("source", src.String()), zap.Error(err))
		return New(SampleBooks(), "built-in")
	}

	logger.Info("catalog loaded", zap.String("source", src.String()), zap.Int("books", len(books)))
	return New(books, src.String())
}

// Parse разбирает JSON-массив книг и проверяет его корректность.
func Parse(data []byte) ([]model.Book, error) {
	var books []model.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(books) == 0 {
		return nil, errors.New("catalog is empty")
	}

	seen := make(map[int]struct{}, len(books))
	for _, b := range books {
		if _, ok := seen[b.ID]; ok {
			return nil, fmt.Errorf("duplicate book id %d", b.ID)
		}
		seen[b.ID] = struct{}{}
		if b.Price < 0 {
			return nil, fmt.Errorf("book %d has negative price", b.ID)
		}
	}

	return books, nil
}

// List возвращает книги в порядке источника.
func (s *Store) List() []model.Book {
	out := make([]model.Book, len(s.books))
	copy(out, s.books)
	return out
}

// Find возвращает книгу по идентификатору.
func (s *Store) Find(id int) (model.Book, error) {
	i, ok := s.byID[id]
	if !ok {
		return model.Book{}, fmt.Errorf("%w: %d", ErrBookNotFound, id)
	}
	return s.books[i], nil
}

// Source описывает, откуда был загружен каталог.
func (s *Store) Source() string {
	return s.source
}

// FileSource читает каталог из локального файла.
type FileSource struct {
	Path string
}

// Read читает содержимое файла каталога.
func (f FileSource) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return data, nil
}

func (f FileSource) String() string {
	return "file:" + f.Path
}

// SeedFile записывает начальный каталог, если файла ещё нет. Существующий файл не изменяется.
func SeedFile(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat catalog file: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create catalog dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(SeedBooks(), "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode seed catalog: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write catalog file: %w", err)
	}
	return true, nil
}

// SampleBooks возвращает встроенный каталог, используемый при недоступности источника.
func SampleBooks() []model.Book {
	return []model.Book{
		{ID: 1, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Price: 12.99, Image: "images/gatsby.jpg", Description: "A classic American novel set in the Jazz Age."},
		{ID: 2, Title: "To Kill a Mockingbird", Author: "Harper Lee", Price: 14.99, Image: "images/mockingbird.jpg", Description: "A gripping tale of racial injustice and childhood innocence."},
		{ID: 3, Title: "1984", Author: "George Orwell", Price: 13.99, Image: "images/1984.jpg", Description: "A dystopian social science fiction novel."},
		{ID: 4, Title: "Pride and Prejudice", Author: "Jane Austen", Price: 11.99, Image: "images/pride.jpg", Description: "A romantic novel of manners."},
	}
}

// SeedBooks возвращает каталог, которым заполняется отсутствующий файл.
func SeedBooks() []model.Book {
	return append(SampleBooks(),
		model.Book{ID: 5, Title: "Atomic Habits", Author: "James Clear", Price: 16.99, Image: "images/atomic_habits.jpg", Description: "An Easy & Proven Way to Build Good Habits & Break Bad Ones."},
		model.Book{ID: 6, Title: "Rich Dad Poor Dad", Author: "Robert Kiyosaki", Price: 15.99, Image: "images/rich_dad_poor_dad.jpg", Description: "What the Rich Teach Their Kids About Money That the Poor and Middle Class Do Not!"},
		model.Book{ID: 7, Title: "The Alchemist", Author: "Paulo Coelho", Price: 13.50, Image: "images/the_alchemist.jpg", Description: "A magical story about following your dreams."},
	)
}
