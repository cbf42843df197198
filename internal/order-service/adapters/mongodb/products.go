package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

var _ ports.InventoryStore = (*ProductStore)(nil)

type productDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Slug        string             `bson:"slug"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Price       money              `bson:"price"`
	Stock       int                `bson:"stock"`
	Published   bool               `bson:"published"`
	DeletedAt   *time.Time         `bson:"deletedAt"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d productDoc) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID.Hex(),
		Slug:        d.Slug,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price.Decimal(),
		Stock:       d.Stock,
		Published:   d.Published,
		DeletedAt:   d.DeletedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type ProductStore struct {
	collection *mongo.Collection
}

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{collection: db.Collection(productsCollection)}
}

// Reserve decrements stock only if enough is left, in one round trip. When
// nothing matches, the current stock is read to report what was available;
// a product that does not exist reports zero.
func (s *ProductStore) Reserve(ctx context.Context, productID string, qty int) error {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return &domain.OutOfStockError{ProductID: productID, Available: 0}
	}

	filter := bson.M{"_id": oid, "stock": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reserve stock for %s: %w", productID, err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	var current struct {
		Stock int `bson:"stock"`
	}
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(bson.M{"stock": 1})).Decode(&current)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to read stock for %s: %w", productID, err)
	}
	return &domain.OutOfStockError{ProductID: productID, Available: current.Stock}
}

func (s *ProductStore) Restock(ctx context.Context, productID string, qty int) error {
	oid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return fmt.Errorf("restock %s: %w", productID, domain.ErrNotFound)
	}

	update := bson.M{
		"$inc": bson.M{"stock": qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to restock %s: %w", productID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("restock %s: %w", productID, domain.ErrNotFound)
	}
	return nil
}

// FindProducts skips ids that are not valid ObjectIDs; they cannot exist.
func (s *ProductStore) FindProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}

	cursor, err := s.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	out := make([]domain.Product, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

// UpsertProduct writes p keyed by slug and returns the stored product.
// Existing stock is overwritten; this is a catalog seeding tool, not an
// inventory operation.
func (s *ProductStore) UpsertProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":        p.Name,
			"description": p.Description,
			"price":       money(p.Price),
			"stock":       p.Stock,
			"published":   p.Published,
			"deletedAt":   p.DeletedAt,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc productDoc
	if err := s.collection.FindOneAndUpdate(ctx, bson.M{"slug": p.Slug}, update, opts).Decode(&doc); err != nil {
		return domain.Product{}, fmt.Errorf("failed to upsert product %s: %w", p.Slug, err)
	}
	return doc.toDomain(), nil
}

func (s *ProductStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}

	return nil
}
