package uow

import (
	"context"
)

// Transactional is implemented by anything that can take part in a unit of
// work: the Builder itself, and any collaborator passed to Builder.Subscribe.
//
// Start must be safe to call once, Commit performs the collaborator's own
// durable effect and Rollback must be safe to call even if Start or Commit
// partially failed.
type Transactional interface {
	Start(ctx context.Context) error
	Commit(ctx context.Context, opts ...CommitOption) error
	Rollback(ctx context.Context) error
}

type commitOptions struct {
	autoRollback bool
}

// CommitOption configures a single Commit call.
type CommitOption func(*commitOptions)

// AutoRollback controls whether a failed Commit rolls back before returning.
// It is enabled by default.
func AutoRollback(enabled bool) CommitOption {
	return func(o *commitOptions) { o.autoRollback = enabled }
}

func newCommitOptions(opts []CommitOption) commitOptions {
	o := commitOptions{autoRollback: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
