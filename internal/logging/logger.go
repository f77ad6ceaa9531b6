// Package logging defines the structured-logging interface the client
// packages depend on, keeping the concrete backend out of their imports.
package logging

import "context"

// Logger is a leveled, context-aware structured logger. Variadic args are
// alternating key-value pairs:
//
//	log.Info(ctx, "push settled", "pending", n)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying the given key-value pairs on
	// every record.
	With(args ...any) Logger
}
