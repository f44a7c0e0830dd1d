package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mmeshcher/bookbazar/internal/model"
)

// MongoRepository хранит учётные записи и корзины в MongoDB.
// Имя пользователя используется как _id в обеих коллекциях.
type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
}

type userDocument struct {
	Username     string    `bson:"_id"`
	PasswordHash []byte    `bson:"passwordHash"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type cartDocument struct {
	Username  string           `bson:"_id"`
	Items     []model.CartItem `bson:"items"`
	UpdatedAt time.Time        `bson:"updatedAt"`
}

// NewMongoRepository подключается к MongoDB и проверяет соединение.
func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	if dbName == "" {
		return nil, errors.New("mongodb database name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(dbName),
	}, nil
}

func (r *MongoRepository) users() *mongo.Collection {
	return r.database.Collection("users")
}

func (r *MongoRepository) carts() *mongo.Collection {
	return r.database.Collection("carts")
}

// Name возвращает название хранилища.
func (r *MongoRepository) Name() string {
	return "mongodb"
}

// Ping проверяет доступность MongoDB.
func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Close отключается от MongoDB.
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

// CreateUser вставляет документ пользователя; повторная вставка того же _id
// отклоняется сервером, что даёт атомарную проверку уникальности.
func (r *MongoRepository) CreateUser(ctx context.Context, username string, passwordHash []byte) error {
	doc := userDocument{
		Username:     username,
		PasswordHash: passwordHash,
		Status:       "active",
		CreatedAt:    time.Now().UTC(),
	}

	if _, err := r.users().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrUserExists, username)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByUsername возвращает пользователя по имени.
func (r *MongoRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var doc userDocument
	err := r.users().FindOne(ctx, bson.M{"_id": username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &model.User{
		Username:     doc.Username,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// GetCart возвращает корзину пользователя.
func (r *MongoRepository) GetCart(ctx context.Context, username string) (model.Cart, error) {
	var doc cartDocument
	err := r.carts().FindOne(ctx, bson.M{"_id": username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Cart{}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if doc.Items == nil {
		return model.Cart{}, nil
	}
	return model.Cart(doc.Items), nil
}

// ReplaceCart заменяет документ корзины целиком, создавая его при отсутствии.
func (r *MongoRepository) ReplaceCart(ctx context.Context, username string, cart model.Cart) error {
	items := []model.CartItem(cart)
	if items == nil {
		items = []model.CartItem{}
	}

	doc := cartDocument{
		Username:  username,
		Items:     items,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := r.carts().ReplaceOne(ctx, bson.M{"_id": username}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace cart: %w", err)
	}
	return nil
}
