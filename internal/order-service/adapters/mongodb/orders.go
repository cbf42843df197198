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

var _ ports.OrderRepository = (*OrderStore)(nil)

const maxListLimit = 100

type orderItemDoc struct {
	ProductID primitive.ObjectID `bson:"productId"`
	Name      string             `bson:"name"`
	Qty       int                `bson:"qty"`
	UnitPrice money              `bson:"unitPrice"`
	LineTotal money              `bson:"lineTotal"`
}

type amountsDoc struct {
	Subtotal money `bson:"subtotal"`
	Shipping money `bson:"shipping"`
	Tax      money `bson:"tax"`
	Total    money `bson:"total"`
}

type paymentDoc struct {
	Method     string `bson:"method"`
	ProviderID string `bson:"providerId,omitempty"`
	Status     string `bson:"status"`
}

type customerDoc struct {
	Email string `bson:"email,omitempty"`
	Name  string `bson:"name,omitempty"`
}

type metadataDoc struct {
	IdempotencyKey          string    `bson:"idempotencyKey"`
	IdempotencyKeyCreatedAt time.Time `bson:"idempotencyKeyCreatedAt"`
}

type orderDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Items     []orderItemDoc     `bson:"items"`
	Amounts   amountsDoc         `bson:"amounts"`
	Payment   paymentDoc         `bson:"payment"`
	Status    string             `bson:"status"`
	User      *customerDoc       `bson:"user,omitempty"`
	Metadata  *metadataDoc       `bson:"metadata,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func newOrderDoc(o *domain.Order) (*orderDoc, error) {
	oid, err := primitive.ObjectIDFromHex(o.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", o.ID, err)
	}

	doc := &orderDoc{
		ID:    oid,
		Items: make([]orderItemDoc, len(o.Items)),
		Amounts: amountsDoc{
			Subtotal: money(o.Amounts.Subtotal),
			Shipping: money(o.Amounts.Shipping),
			Tax:      money(o.Amounts.Tax),
			Total:    money(o.Amounts.Total),
		},
		Payment: paymentDoc{
			Method:     string(o.Payment.Method),
			ProviderID: o.Payment.ProviderID,
			Status:     string(o.Payment.Status),
		},
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for i, it := range o.Items {
		pid, err := primitive.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q: %w", it.ProductID, err)
		}
		doc.Items[i] = orderItemDoc{
			ProductID: pid,
			Name:      it.Name,
			Qty:       it.Quantity,
			UnitPrice: money(it.UnitPrice),
			LineTotal: money(it.LineTotal),
		}
	}
	if o.User != nil {
		doc.User = &customerDoc{Email: o.User.Email, Name: o.User.Name}
	}
	if o.Idempotency != nil {
		doc.Metadata = &metadataDoc{
			IdempotencyKey:          o.Idempotency.Key,
			IdempotencyKeyCreatedAt: o.Idempotency.CreatedAt,
		}
	}
	return doc, nil
}

func (d *orderDoc) toDomain() *domain.Order {
	o := &domain.Order{
		ID:    d.ID.Hex(),
		Items: make([]domain.OrderItem, len(d.Items)),
		Amounts: domain.Amounts{
			Subtotal: d.Amounts.Subtotal.Decimal(),
			Shipping: d.Amounts.Shipping.Decimal(),
			Tax:      d.Amounts.Tax.Decimal(),
			Total:    d.Amounts.Total.Decimal(),
		},
		Payment: domain.Payment{
			Method:     domain.PaymentMethod(d.Payment.Method),
			ProviderID: d.Payment.ProviderID,
			Status:     domain.PaymentStatus(d.Payment.Status),
		},
		Status:    domain.OrderStatus(d.Status),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for i, it := range d.Items {
		o.Items[i] = domain.OrderItem{
			ProductID: it.ProductID.Hex(),
			Name:      it.Name,
			Quantity:  it.Qty,
			UnitPrice: it.UnitPrice.Decimal(),
			LineTotal: it.LineTotal.Decimal(),
		}
	}
	if d.User != nil {
		o.User = &domain.Customer{Email: d.User.Email, Name: d.User.Name}
	}
	if d.Metadata != nil {
		o.Idempotency = &domain.IdempotencyMetadata{
			Key:       d.Metadata.IdempotencyKey,
			CreatedAt: d.Metadata.IdempotencyKeyCreatedAt,
		}
	}
	return o
}

type OrderStore struct {
	collection *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{collection: db.Collection(ordersCollection)}
}

func (s *OrderStore) NextID() string {
	return primitive.NewObjectID().Hex()
}

func (s *OrderStore) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = s.NextID()
	}
	// Mongo keeps millisecond precision; truncate so the caller's copy
	// matches what a later read returns.
	now := time.Now().UTC().Truncate(time.Millisecond)
	order.CreatedAt = now
	order.UpdatedAt = now

	doc, err := newOrderDoc(order)
	if err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}

	var doc orderDoc
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.toDomain(), nil
}

// Update applies patch with a single findAndModify. With ExpectStatus set the
// status check and the write are one atomic operation.
func (s *OrderStore) Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}

	filter := bson.M{"_id": oid}
	if patch.ExpectStatus != nil {
		filter["status"] = string(*patch.ExpectStatus)
	}
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.PaymentStatus != nil {
		set["payment.status"] = string(*patch.PaymentStatus)
	}
	if patch.ProviderID != nil {
		set["payment.providerId"] = *patch.ProviderID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc orderDoc
	err = s.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if patch.ExpectStatus == nil {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}

	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("failed to check order: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return nil, fmt.Errorf("order %s: %w", id, domain.ErrStatusConflict)
}

func (s *OrderStore) FindByIdempotencyKey(ctx context.Context, key string, since time.Time) (*domain.Order, error) {
	filter := bson.M{
		"metadata.idempotencyKey":          key,
		"metadata.idempotencyKeyCreatedAt": bson.M{"$gte": since},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "metadata.idempotencyKeyCreatedAt", Value: -1}})

	var doc orderDoc
	err := s.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *OrderStore) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	query := bson.M{}
	if filter.Email != "" {
		query["user.email"] = filter.Email
	}
	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}

	out := make([]*domain.Order, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, nil
}

func (s *OrderStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "metadata.idempotencyKey", Value: 1},
				{Key: "metadata.idempotencyKeyCreatedAt", Value: -1},
			},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "payment.providerId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "user.email", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	}

	_, err := s.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}

	return nil
}
