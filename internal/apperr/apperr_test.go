// ABOUTME: Tests for the internal error taxonomy and client mapping
// ABOUTME: Ensures every Kind has a mapping and wrapping keeps the outermost variant

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMappingsComplete(t *testing.T) {
	for k := Kind(0); k < kindCount; k++ {
		m := clientMappings[k]
		assert.NotZero(t, m.status, "kind %s has no status", k)
		assert.NotEmpty(t, m.tag, "kind %s has no client tag", k)
		assert.NotEmpty(t, kindNames[k], "kind %d has no name", int(k))
	}
}

func TestClientStatusAndError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantTag    ClientError
	}{
		{"login fail", LoginFail(), http.StatusForbidden, ClientLoginFail},
		{"no auth", NoAuth(nil), http.StatusForbidden, ClientAuthFailNoAuth},
		{"token format", TokenWrongFormat("no dot"), http.StatusForbidden, ClientAuthFailTokenFormat},
		{"not found", NotFound("ticket", 3), http.StatusNotFound, ClientEntityNotFound},
		{"not owned", NotOwned("ticket", 3, 9), http.StatusForbidden, ClientEntityNotOwned},
		{"invalid params", InvalidParams("title is empty", nil), http.StatusBadRequest, ClientInvalidParams},
		{"service", Service(errors.New("disk on fire")), http.StatusInternalServerError, ClientServiceError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, ClientServiceError},
		{"unknown kind", &Error{Kind: Kind(99)}, http.StatusInternalServerError, ClientServiceError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, tag := ClientStatusAndError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantTag, tag)
		})
	}
}

func TestAs_OutermostVariantWins(t *testing.T) {
	inner := TokenWrongFormat("missing signature")
	outer := NoAuth(inner)
	wrapped := fmt.Errorf("handling request: %w", outer)

	got := As(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, KindAuthFailNoAuth, got.Kind)
	assert.True(t, Is(wrapped, KindAuthFailTokenWrongFormat), "cause should stay reachable")
	assert.Contains(t, got.Error(), "missing signature")
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		want bool
	}{
		{"outer kind", NoAuth(TokenWrongFormat("bad")), KindAuthFailNoAuth, true},
		{"cause kind", NoAuth(TokenWrongFormat("bad")), KindAuthFailTokenWrongFormat, true},
		{"cause behind fmt wrap", NoAuth(fmt.Errorf("resolving: %w", TokenWrongFormat("bad"))), KindAuthFailTokenWrongFormat, true},
		{"absent kind", NoAuth(TokenWrongFormat("bad")), KindEntityNotFound, false},
		{"no cause", NoAuth(nil), KindAuthFailTokenWrongFormat, false},
		{"plain error", errors.New("boom"), KindService, false},
		{"nil", nil, KindService, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.err, tt.kind))
		})
	}
}

func TestAs_Nil(t *testing.T) {
	assert.Nil(t, As(nil))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "EntityNotFound ticket#7", NotFound("ticket", 7).Error())
	assert.Equal(t, "Service: boom", Service(errors.New("boom")).Error())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestError_LogValue(t *testing.T) {
	v := NotFound("ticket", 7).LogValue()
	attrs := v.Group()
	require.Len(t, attrs, 3)
	assert.Equal(t, "kind", attrs[0].Key)
	assert.Equal(t, "EntityNotFound", attrs[0].Value.String())
	assert.Equal(t, "entity", attrs[1].Key)
	assert.Equal(t, uint64(7), attrs[2].Value.Uint64())
}
