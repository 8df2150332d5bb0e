package log

import "context"

// Logger is the structured logging surface used across the identity core.
// Context is threaded through so adapters can enrich entries with request
// or trace metadata.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	// With returns a child logger carrying the given structured fields.
	With(fields map[string]interface{}) Logger
}
