// ABOUTME: Request-scoped pipeline state threaded through context.Context
// ABOUTME: Carries the request id, resolved identity and the first attached error

package reqstate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is created once per request by the response mapper and read back by
// it after the handler chain returns. Stages record into it; none of it is
// shared across requests.
type State struct {
	ID    uuid.UUID
	Start time.Time

	mu         sync.Mutex
	err        error
	dropped    []error
	subject    uint64
	hasSubject bool
	resolveErr error
}

// New returns a State with a fresh v4 request id.
func New() *State {
	return &State{ID: uuid.New(), Start: time.Now()}
}

// Fail attaches err. Only the first failure is kept; later ones are
// recorded as dropped and false is returned.
func (s *State) Fail(err error) bool {
	if err == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		s.dropped = append(s.dropped, err)
		return false
	}
	s.err = err
	return true
}

// Err returns the attached failure, if any.
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns failures that arrived after the first one.
func (s *State) Dropped() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.dropped...)
}

// SetSubject records the identity resolved for this request.
func (s *State) SetSubject(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject, s.hasSubject = id, true
}

// Subject returns the resolved identity, if any.
func (s *State) Subject() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subject, s.hasSubject
}

// SetResolveErr records a token resolution failure. It does not fail the
// request: unprotected routes keep working with a bad cookie.
func (s *State) SetResolveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveErr = err
}

// ResolveErr returns the recorded resolution failure, if any.
func (s *State) ResolveErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveErr
}

type stateKey struct{}

// With returns a context carrying s.
func With(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// From returns the State carried by ctx, or nil.
func From(ctx context.Context) *State {
	s, _ := ctx.Value(stateKey{}).(*State)
	return s
}

// Fail attaches err to the State carried by ctx. It reports false when ctx
// has no State or a failure was already attached.
func Fail(ctx context.Context, err error) bool {
	s := From(ctx)
	if s == nil {
		return false
	}
	return s.Fail(err)
}
