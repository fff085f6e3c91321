// Package graph delivers generated Cypher statements to a
// caller-supplied executor, batching and retrying the way the
// surrounding stream expects. It never opens a Bolt connection itself:
// the executor owns the session/transaction lifecycle.
package graph

import (
	"context"

	"github.com/ezeql/go-pq-cdc-memgraph/cypher"
)

// Executor applies a batch of statements to the graph store,
// transactionally if it can. Implementations own connection lifecycle
// and timeouts.
type Executor interface {
	ExecuteBatch(ctx context.Context, statements []cypher.Statement) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, statements []cypher.Statement) error

func (f ExecutorFunc) ExecuteBatch(ctx context.Context, statements []cypher.Statement) error {
	return f(ctx, statements)
}

// Acker acknowledges the source position once a batch is durably
// applied. Both the replication listener context and AMQP deliveries
// satisfy it through small adapters.
type Acker interface {
	Ack() error
}

// AckFunc adapts a function to the Acker interface.
type AckFunc func() error

func (f AckFunc) Ack() error { return f() }
