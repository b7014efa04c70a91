// ABOUTME: Unit tests for identity context helpers
// ABOUTME: Tests Resolution propagation and FromContext outcome handling

package auth

import (
	"context"
	"testing"

	"github.com/2389/ticketd/internal/apperr"
)

func TestFromContext_Resolved(t *testing.T) {
	ctx := WithResolution(context.Background(), Resolution{Outcome: Resolved, Ctx: Ctx{SubjectID: 7}})

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("FromContext() ok = false, want true")
	}
	if got.SubjectID != 7 {
		t.Errorf("SubjectID = %d, want 7", got.SubjectID)
	}
}

func TestFromContext_NotResolved(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "resolver never ran", ctx: context.Background()},
		{name: "no token", ctx: WithResolution(context.Background(), Resolution{Outcome: NoToken})},
		{
			name: "malformed token",
			ctx: WithResolution(context.Background(), Resolution{
				Outcome: MalformedToken,
				Ctx:     Ctx{SubjectID: 9},
				Err:     apperr.TokenWrongFormat("bad"),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := FromContext(tt.ctx); ok {
				t.Error("FromContext() ok = true, want false")
			}
		})
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustFromContext() should panic without a resolved Ctx")
		}
	}()
	MustFromContext(context.Background())
}

func TestOutcome_String(t *testing.T) {
	if NoToken.String() != "no_token" || Resolved.String() != "resolved" || MalformedToken.String() != "malformed_token" {
		t.Error("unexpected Outcome names")
	}
	if Outcome(9).String() != "unknown" {
		t.Errorf("Outcome(9).String() = %q", Outcome(9).String())
	}
}
