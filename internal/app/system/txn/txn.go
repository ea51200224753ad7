// Package txn runs multi-collection writes inside a MongoDB transaction when
// the deployment supports one, and falls back to sequential best-effort
// execution on standalone servers.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes returned when sessions or transactions are unavailable
// (standalone mongod, some DocumentDB versions).
var unsupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation
	51:  true, // IllegalOperation (legacy)
	263: true, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err means the server cannot run a
// multi-document transaction.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && unsupportedCodes[ce.Code] {
		return true
	}

	s := strings.ToLower(err.Error())
	has := func(sub string) bool { return strings.Contains(s, sub) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}

// Runner executes a function as one unit of work.
type Runner struct {
	client *mongo.Client
	log    *zap.Logger
}

// New returns a Runner bound to the database's client.
func New(db *mongo.Database, logger *zap.Logger) *Runner {
	return &Runner{client: db.Client(), log: logger}
}

// Run calls fn inside a transaction. Store calls made with the ctx passed to
// fn join the transaction. When transactions are not supported, fn is called
// again with the original ctx and its steps are not atomic.
func (r *Runner) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return r.fallback(ctx, op, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return r.fallback(ctx, op, err, fn)
	}
	return err
}

func (r *Runner) fallback(ctx context.Context, op string, cause error, fn func(ctx context.Context) error) error {
	r.log.Debug("transactions unavailable; running steps sequentially",
		zap.String("op", op),
		zap.Error(cause))
	return fn(ctx)
}
