// Package notify delivers short user-visible messages such as load failures
// or lost connectivity.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantWarning     Variant = "warning"
	VariantDestructive Variant = "destructive"
)

type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Log writes notifications to a logger.
type Log struct {
	log logging.Logger
}

func NewLog(log logging.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(ctx context.Context, n Notification) {
	args := []any{"title", n.Title, "description", n.Description}
	switch n.Variant {
	case VariantDestructive:
		l.log.Error(ctx, "notification", args...)
	case VariantWarning:
		l.log.Warn(ctx, "notification", args...)
	default:
		l.log.Info(ctx, "notification", args...)
	}
}

// Writer prints notifications as single lines, e.g. to a terminal's stderr.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Notify(_ context.Context, n Notification) {
	prefix := "*"
	switch n.Variant {
	case VariantDestructive:
		prefix = "!"
	case VariantWarning:
		prefix = "?"
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if n.Description == "" {
		fmt.Fprintf(w.out, "%s %s\n", prefix, n.Title)
		return
	}
	fmt.Fprintf(w.out, "%s %s: %s\n", prefix, n.Title, n.Description)
}

// Recorder keeps every notification; used in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		x.Notify(ctx, n)
	}
}
