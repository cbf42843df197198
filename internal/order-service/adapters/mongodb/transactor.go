package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

var _ ports.Transactor = (*Transactor)(nil)

// illegalOperation is what a standalone server answers to the first
// statement of a transaction.
const illegalOperation = 20

type Transactor struct {
	client *mongo.Client
}

func NewTransactor(db *mongo.Database) *Transactor {
	return &Transactor{client: db.Client()}
}

// WithinTransaction runs fn in a session transaction. The driver retries fn
// on transient errors, so fn must be safe to run more than once. Calls made
// with a ctx that already carries a session join the open transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return mapTransactionError(fmt.Errorf("failed to start session: %w", err))
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return mapTransactionError(err)
}

// mapTransactionError marks a refusal to run a transaction with
// domain.ErrTransactionsUnsupported and leaves every other error unchanged.
func mapTransactionError(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(illegalOperation) {
		return fmt.Errorf("%w: %v", domain.ErrTransactionsUnsupported, err)
	}
	return err
}
