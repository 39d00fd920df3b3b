package logger

import (
	"context"
	"log/slog"
	"time"
)

// Operation ties the log lines of one orchestration action together: the
// start line and its outcome share a name, attribute set and measured
// duration. Context-carried request/node/server IDs ride along via
// WithContext.
type Operation struct {
	logger  *Logger
	ctx     context.Context
	name    string
	started time.Time
	attrs   []any
}

// StartOp opens an operation. The start line is logged at debug; routine
// actions (health probes every sweep, power toggles) would otherwise drown
// the info stream.
func (l *Logger) StartOp(ctx context.Context, name string, args ...any) *Operation {
	op := &Operation{
		logger:  l,
		ctx:     ctx,
		name:    name,
		started: time.Now(),
		attrs:   args,
	}
	l.WithContext(ctx).Debug("operation started", op.baseAttrs(nil)...)
	return op
}

// With attaches attributes that will appear on the outcome line.
func (op *Operation) With(args ...any) *Operation {
	op.attrs = append(op.attrs, args...)
	return op
}

// Complete logs the operation's success with its total duration.
func (op *Operation) Complete(msg string, args ...any) {
	if msg == "" {
		msg = "operation completed"
	}
	op.logger.WithContext(op.ctx).Info(msg, op.outcomeAttrs("success", args)...)
}

// Fail logs the operation's failure. DomainError metadata is unpacked the
// same way ErrorCtx does it.
func (op *Operation) Fail(err error, msg string, args ...any) {
	if msg == "" {
		msg = "operation failed"
	}
	attrs := op.outcomeAttrs("failure", args)
	attrs = append(attrs, errorAttrs(err)...)
	op.logger.WithContext(op.ctx).Error(msg, attrs...)
}

func (op *Operation) baseAttrs(extra []any) []any {
	attrs := append([]any{slog.String("operation", op.name)}, op.attrs...)
	return append(attrs, extra...)
}

func (op *Operation) outcomeAttrs(outcome string, extra []any) []any {
	attrs := op.baseAttrs(extra)
	return append(attrs,
		slog.String("outcome", outcome),
		slog.Int64("duration_ms", time.Since(op.started).Milliseconds()),
	)
}
