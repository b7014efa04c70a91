// ABOUTME: Resolved request identity and the resolver outcome carried in context
// ABOUTME: Provides WithResolution/FromContext for propagating identity to handlers

package auth

import (
	"context"
)

// Ctx is the identity resolved for one request.
type Ctx struct {
	SubjectID uint64
}

// Outcome is the result class of resolving the auth cookie.
type Outcome int

const (
	// NoToken means the cookie was absent. Not an error by itself.
	NoToken Outcome = iota
	Resolved
	MalformedToken
)

func (o Outcome) String() string {
	switch o {
	case NoToken:
		return "no_token"
	case Resolved:
		return "resolved"
	case MalformedToken:
		return "malformed_token"
	default:
		return "unknown"
	}
}

// Resolution is what the Context Resolver records for later stages.
// Ctx is only meaningful when Outcome is Resolved; Err only when it is
// MalformedToken.
type Resolution struct {
	Outcome Outcome
	Ctx     Ctx
	Err     error
}

type resolutionKey struct{}

// WithResolution returns a new context with res attached.
func WithResolution(ctx context.Context, res Resolution) context.Context {
	return context.WithValue(ctx, resolutionKey{}, res)
}

// ResolutionFrom returns the Resolution attached to ctx. ok is false when
// the resolver never ran for this request.
func ResolutionFrom(ctx context.Context) (res Resolution, ok bool) {
	res, ok = ctx.Value(resolutionKey{}).(Resolution)
	return res, ok
}

// FromContext returns the resolved identity, or false if the request has none.
func FromContext(ctx context.Context) (Ctx, bool) {
	res, ok := ResolutionFrom(ctx)
	if !ok || res.Outcome != Resolved {
		return Ctx{}, false
	}
	return res.Ctx, true
}

// MustFromContext returns the resolved identity, panicking if not present.
// Only for handlers mounted behind RequireAuth.
func MustFromContext(ctx context.Context) Ctx {
	c, ok := FromContext(ctx)
	if !ok {
		panic("auth: Ctx not found in context")
	}
	return c
}
