// ABOUTME: Tests for the background request logger
// ABOUTME: Covers record building, JSON output, drop-on-full and close draining

package reqlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ticketd/internal/apperr"
	"github.com/2389/ticketd/internal/reqstate"
)

// syncBuffer is a bytes.Buffer safe for the writer goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewRecord_Failure(t *testing.T) {
	st := reqstate.New()
	st.SetSubject(7)
	st.Fail(apperr.NotFound("ticket", 3))

	r := httptest.NewRequest(http.MethodDelete, "/api/tickets/3", nil)
	rec := NewRecord(st, r, http.StatusNotFound)

	assert.Equal(t, st.ID, rec.UUID)
	assert.Equal(t, http.MethodDelete, rec.Method)
	assert.Equal(t, "/api/tickets/3", rec.Path)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, uint64(7), *rec.UserID)
	assert.Equal(t, "EntityNotFound", rec.ErrorType)
	assert.Equal(t, apperr.ClientEntityNotFound, rec.ClientErrorType)
	assert.Contains(t, rec.ErrorData, "ticket#3")
}

func TestNewRecord_Success(t *testing.T) {
	st := reqstate.New()
	st.SetResolveErr(apperr.TokenWrongFormat("bad"))

	r := httptest.NewRequest(http.MethodGet, "/hello", nil)
	rec := NewRecord(st, r, http.StatusOK)

	assert.Nil(t, rec.UserID)
	assert.Empty(t, rec.ErrorType)
	assert.Empty(t, rec.ClientErrorType)
	assert.Contains(t, rec.CtxError, "AuthFailTokenWrongFormat")
}

func TestNewRecord_PlainErrorIsService(t *testing.T) {
	st := reqstate.New()
	st.Fail(errors.New("disk on fire"))

	rec := NewRecord(st, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusInternalServerError)
	assert.Equal(t, "Service", rec.ErrorType)
	assert.Equal(t, apperr.ClientServiceError, rec.ClientErrorType)
	assert.Equal(t, "disk on fire", rec.ErrorData)
}

func TestLogger_WritesJSON(t *testing.T) {
	var buf syncBuffer
	l := New(slog.New(slog.NewJSONHandler(&buf, nil)), 8)

	st := reqstate.New()
	st.SetSubject(1)
	st.Fail(apperr.LoginFail())
	require.True(t, l.Log(NewRecord(st, httptest.NewRequest(http.MethodPost, "/api/login", nil), http.StatusForbidden)))
	l.Close()

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, st.ID.String(), line["uuid"])
	assert.Equal(t, "POST", line["http_method"])
	assert.Equal(t, "/api/login", line["http_path"])
	assert.Equal(t, float64(1), line["user_id"])
	assert.Equal(t, "LoginFail", line["error_type"])
	assert.Equal(t, "LOGIN_FAIL", line["client_error_type"])
}

// blockingHandler holds every write until release is closed.
type blockingHandler struct {
	slog.Handler
	release chan struct{}
}

func (h *blockingHandler) Handle(ctx context.Context, r slog.Record) error {
	<-h.release
	return nil
}

func TestLogger_DropsWhenFull(t *testing.T) {
	h := &blockingHandler{Handler: slog.NewTextHandler(&syncBuffer{}, nil), release: make(chan struct{})}
	l := New(slog.New(h), 1)

	rec := Record{Status: http.StatusOK}
	accepted := 0
	for i := 0; i < 10; i++ {
		if l.Log(rec) {
			accepted++
		}
	}

	// one record may be in flight in the writer plus one queued
	assert.LessOrEqual(t, accepted, 2)
	assert.Equal(t, uint64(10-accepted), l.Dropped())

	close(h.release)
	l.Close()
}

func TestLogger_CloseIsIdempotentAndRejectsAfter(t *testing.T) {
	l := New(slog.New(slog.NewTextHandler(&syncBuffer{}, nil)), 4)
	l.Close()
	l.Close()

	assert.False(t, l.Log(Record{}))
	assert.Equal(t, uint64(1), l.Dropped())
}

// panicHandler fails every write.
type panicHandler struct{ slog.Handler }

func (panicHandler) Handle(context.Context, slog.Record) error { panic("sink broken") }

func TestLogger_SinkPanicIsContained(t *testing.T) {
	l := New(slog.New(panicHandler{slog.NewTextHandler(&syncBuffer{}, nil)}), 4)
	l.Log(Record{})
	l.Log(Record{})
	l.Close()
	assert.Equal(t, uint64(2), l.Dropped())
}

func TestRecord_Level(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Record{Status: 200}.level())
	assert.Equal(t, slog.LevelWarn, Record{Status: 404}.level())
	assert.Equal(t, slog.LevelError, Record{Status: 500}.level())
}
