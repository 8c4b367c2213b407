package syncer

import "log/slog"

// ConfirmMode selects when drained items leave the persisted queue.
type ConfirmMode string

const (
	// ConfirmBatch removes items only after every create in the pass succeeded.
	ConfirmBatch ConfirmMode = "batch"
	// ConfirmPerItem removes each item right after its own create succeeded.
	ConfirmPerItem ConfirmMode = "per_item"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithConfirmMode sets the confirm mode. Unknown modes fall back to batch.
func WithConfirmMode(m ConfirmMode) Option {
	return func(c *Coordinator) {
		if m == ConfirmPerItem {
			c.mode = ConfirmPerItem
			return
		}
		c.mode = ConfirmBatch
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}
