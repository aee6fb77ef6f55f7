// Package transactor runs functions inside a database transaction carried by context.
// Repositories resolve the transaction from context, so services stay storage agnostic.
package transactor

import (
	"context"
)

// Transactor represents behavior for transactors
type Transactor interface {
	WithinTransaction(context.Context, func(context.Context) error) error
}

type noopTransactor struct{}

// NewNoopTransactor builds Transactor which runs function without transaction
func NewNoopTransactor() Transactor {
	return noopTransactor{}
}

func (noopTransactor) WithinTransaction(ctx context.Context, txFunc func(context.Context) error) error {
	return txFunc(ctx)
}
