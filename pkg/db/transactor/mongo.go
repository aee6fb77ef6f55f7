package transactor

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

type mongoTransactor struct {
	client *mongo.Client
}

// NewMongoTransactor builds Transactor backed by mongo sessions, requires replica set
func NewMongoTransactor(client *mongo.Client) Transactor {
	return &mongoTransactor{client: client}
}

func (t *mongoTransactor) WithinTransaction(ctx context.Context, txFunc func(context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil { // already inside session, join it
		return txFunc(ctx)
	}

	return t.client.UseSession(ctx, func(sc mongo.SessionContext) error {
		_, err := sc.WithTransaction(sc, func(txCtx mongo.SessionContext) (any, error) {
			return nil, txFunc(txCtx)
		})
		return err
	})
}
