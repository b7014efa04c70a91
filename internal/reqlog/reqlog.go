// ABOUTME: Best-effort structured request log written off the response path
// ABOUTME: Records are queued without blocking and written by one background goroutine

package reqlog

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/2389/ticketd/internal/apperr"
	"github.com/2389/ticketd/internal/reqstate"
)

// DefaultQueueSize is used when New is given a non-positive size.
const DefaultQueueSize = 1024

// Record is one request log line.
type Record struct {
	UUID            uuid.UUID
	Timestamp       time.Time
	Method          string
	Path            string
	Status          int
	Duration        time.Duration
	UserID          *uint64
	ErrorType       string // apperr.Kind name
	ErrorData       string // full internal error text, cause chain included
	ClientErrorType apperr.ClientError
	CtxError        string // identity resolution failure, recorded on any route
}

// NewRecord builds the record for a finished request from its state.
func NewRecord(st *reqstate.State, r *http.Request, status int) Record {
	rec := Record{
		UUID:      st.ID,
		Timestamp: st.Start.UTC(),
		Method:    r.Method,
		Path:      r.URL.Path,
		Status:    status,
		Duration:  time.Since(st.Start),
	}
	if id, ok := st.Subject(); ok {
		rec.UserID = &id
	}
	if err := st.Err(); err != nil {
		ae := apperr.As(err)
		_, rec.ClientErrorType = ae.ClientStatusAndError()
		rec.ErrorType = ae.Kind.String()
		rec.ErrorData = err.Error()
	}
	if err := st.ResolveErr(); err != nil {
		rec.CtxError = err.Error()
	}
	return rec
}

func (r Record) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("uuid", r.UUID.String()),
		slog.String("timestamp", r.Timestamp.Format(time.RFC3339Nano)),
		slog.String("http_method", r.Method),
		slog.String("http_path", r.Path),
		slog.Int("status", r.Status),
		slog.Duration("duration", r.Duration),
	}
	if r.UserID != nil {
		attrs = append(attrs, slog.Uint64("user_id", *r.UserID))
	}
	if r.ErrorType != "" {
		attrs = append(attrs,
			slog.String("error_type", r.ErrorType),
			slog.String("error_data", r.ErrorData),
			slog.String("client_error_type", string(r.ClientErrorType)),
		)
	}
	if r.CtxError != "" {
		attrs = append(attrs, slog.String("ctx_error", r.CtxError))
	}
	return attrs
}

func (r Record) level() slog.Level {
	switch {
	case r.Status >= http.StatusInternalServerError:
		return slog.LevelError
	case r.Status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Logger writes Records through slog from a single goroutine.
type Logger struct {
	logger  *slog.Logger
	queue   chan Record
	dropped atomic.Uint64
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New starts a Logger. Pass nil logger for slog.Default().
func New(logger *slog.Logger, queueSize int) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l := &Logger{
		logger: logger,
		queue:  make(chan Record, queueSize),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Log queues rec. It never blocks: if the queue is full or the Logger is
// closed the record is dropped and false is returned.
func (l *Logger) Log(rec Record) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		l.dropped.Add(1)
		return false
	}
	select {
	case l.queue <- rec:
		return true
	default:
		l.dropped.Add(1)
		return false
	}
}

// Dropped returns how many records were discarded.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close stops accepting records and waits for queued ones to be written.
// It is safe to call multiple times.
func (l *Logger) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	<-l.done
}

func (l *Logger) run() {
	defer close(l.done)
	for rec := range l.queue {
		l.write(rec)
	}
}

// write isolates a failing slog handler from the rest of the queue.
func (l *Logger) write(rec Record) {
	defer func() {
		if r := recover(); r != nil {
			l.dropped.Add(1)
		}
	}()
	l.logger.LogAttrs(context.Background(), rec.level(), "request", rec.attrs()...)
}
