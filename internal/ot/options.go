package ot

import "go.uber.org/zap"

// Option configures a Document during creation.
type Option func(*Document)

// WithLogger sets the diagnostics sink. A nil logger disables diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Document) {
		if logger == nil {
			logger = zap.NewNop()
		}

		d.logger = logger
	}
}

// WithMaxUndos sets how many undo and redo entries the document keeps.
func WithMaxUndos(n int) Option {
	return func(d *Document) {
		if n > 0 {
			d.history = NewHistory(n)
		}
	}
}
