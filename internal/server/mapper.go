// ABOUTME: Outbound response mapper that renders attached errors exactly once
// ABOUTME: Buffers the handler response, swaps in the client error envelope, and logs the request

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/2389/ticketd/internal/apperr"
	"github.com/2389/ticketd/internal/reqlog"
	"github.com/2389/ticketd/internal/reqstate"
)

// clientErrorBody is the only error shape clients ever see.
type clientErrorBody struct {
	Error clientErrorDetail `json:"error"`
}

type clientErrorDetail struct {
	Type    apperr.ClientError `json:"type"`
	ReqUUID string             `json:"req_uuid"`
}

// bufferedResponse holds a handler's response until the mapper decides
// whether to pass it through or replace it.
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedResponse) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

// copyTo writes the buffered response to w unchanged.
func (b *bufferedResponse) copyTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
	w.WriteHeader(b.statusCode())
	_, _ = w.Write(b.body.Bytes())
}

// mapResponses is the outermost stage. It creates the request state, runs
// the chain, and then either renders the attached error or passes the
// handler's response through. The request log record is queued last and
// never delays the response.
func (s *Server) mapResponses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := reqstate.New()
		r = r.WithContext(reqstate.With(r.Context(), st))

		buf := newBufferedResponse()
		s.serveRecovered(buf, r, next, st)

		// Client went away: nothing to send, nothing to log.
		if r.Context().Err() != nil {
			return
		}

		status := buf.statusCode()
		if err := st.Err(); err != nil {
			status = s.writeClientError(w, buf, st, err)
		} else {
			buf.copyTo(w)
		}

		for _, dropped := range st.Dropped() {
			s.logger.Debug("ignored error after first failure", "req_uuid", st.ID, "error", dropped)
		}
		s.reqlog.Log(reqlog.NewRecord(st, r, status))
	})
}

// serveRecovered runs next, turning a handler panic into a Service error.
func (s *Server) serveRecovered(w http.ResponseWriter, r *http.Request, next http.Handler, st *reqstate.State) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		s.logger.Error("handler panic", "req_uuid", st.ID, "panic", rec, "stack", string(debug.Stack()))
		st.Fail(apperr.Service(fmt.Errorf("panic: %v", rec)))
	}()
	next.ServeHTTP(w, r)
}

// writeClientError discards the buffered response and writes the error
// envelope. Set-Cookie headers from the resolver are kept so a bad token is
// still cleared on failing requests.
func (s *Server) writeClientError(w http.ResponseWriter, buf *bufferedResponse, st *reqstate.State, err error) int {
	status, tag := apperr.ClientStatusAndError(err)

	body, mErr := json.Marshal(clientErrorBody{Error: clientErrorDetail{Type: tag, ReqUUID: st.ID.String()}})
	if mErr != nil {
		s.logger.Error("encoding client error", "error", mErr)
		body = []byte(`{"error":{"type":"SERVICE_ERROR"}}`)
	}

	for _, c := range buf.header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", c)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)

	s.logger.Debug("client error", "req_uuid", st.ID, "status", status, "type", tag, "error", apperr.As(err))
	return status
}
