// ABOUTME: Closed taxonomy of internal failures and their client-facing mapping
// ABOUTME: Every Kind maps to exactly one (HTTP status, ClientError) pair

package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Kind identifies an internal failure variant.
type Kind int

const (
	// KindService is the catch-all for unclassified failures.
	KindService Kind = iota
	KindLoginFail
	KindAuthFailNoAuth
	// KindAuthFailTokenWrongFormat is a token parse failure. The auth gate
	// reports it as the cause of KindAuthFailNoAuth, so clients see
	// AUTH_FAIL_NO_AUTH and the parse detail only reaches the request log
	// (ctx_error, error_data).
	KindAuthFailTokenWrongFormat
	KindInvalidParams
	KindEntityNotFound
	KindEntityNotOwned

	kindCount
)

var kindNames = [kindCount]string{
	KindService:                  "Service",
	KindLoginFail:                "LoginFail",
	KindAuthFailNoAuth:           "AuthFailNoAuth",
	KindAuthFailTokenWrongFormat: "AuthFailTokenWrongFormat",
	KindInvalidParams:            "InvalidParams",
	KindEntityNotFound:           "EntityNotFound",
	KindEntityNotOwned:           "EntityNotOwned",
}

// String returns the variant name used in server-side logs.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ClientError is the public, client-safe error tag.
type ClientError string

const (
	ClientLoginFail           ClientError = "LOGIN_FAIL"
	ClientAuthFailNoAuth      ClientError = "AUTH_FAIL_NO_AUTH"
	ClientAuthFailTokenFormat ClientError = "AUTH_FAIL_TOKEN_WRONG_FORMAT"
	ClientInvalidParams       ClientError = "INVALID_PARAMS"
	ClientEntityNotFound      ClientError = "ENTITY_NOT_FOUND"
	ClientEntityNotOwned      ClientError = "ENTITY_NOT_OWNED"
	ClientServiceError        ClientError = "SERVICE_ERROR"
)

type clientMapping struct {
	status int
	tag    ClientError
}

// clientMappings is indexed by Kind. TestClientMappingsComplete fails if a
// Kind is added without an entry.
var clientMappings = [kindCount]clientMapping{
	KindService:                  {http.StatusInternalServerError, ClientServiceError},
	KindLoginFail:                {http.StatusForbidden, ClientLoginFail},
	KindAuthFailNoAuth:           {http.StatusForbidden, ClientAuthFailNoAuth},
	KindAuthFailTokenWrongFormat: {http.StatusForbidden, ClientAuthFailTokenFormat},
	KindInvalidParams:            {http.StatusBadRequest, ClientInvalidParams},
	KindEntityNotFound:           {http.StatusNotFound, ClientEntityNotFound},
	KindEntityNotOwned:           {http.StatusForbidden, ClientEntityNotOwned},
}

// Error is the full-detail internal failure. It is logged server-side and
// never rendered to clients directly.
type Error struct {
	Kind   Kind
	Entity string // entity name for EntityNotFound / EntityNotOwned
	ID     uint64 // entity id for EntityNotFound / EntityNotOwned
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Entity != "" {
		msg += fmt.Sprintf(" %s#%d", e.Entity, e.ID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// LogValue groups the variant fields for structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("kind", e.Kind.String())}
	if e.Entity != "" {
		attrs = append(attrs, slog.String("entity", e.Entity), slog.Uint64("id", e.ID))
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("detail", e.Detail))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("cause", e.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// ClientStatusAndError returns the HTTP status and public tag for e.
func (e *Error) ClientStatusAndError() (int, ClientError) {
	if e.Kind < 0 || e.Kind >= kindCount {
		m := clientMappings[KindService]
		return m.status, m.tag
	}
	m := clientMappings[e.Kind]
	return m.status, m.tag
}

// As extracts the outermost *Error from err. A non-nil err without an
// *Error in its chain is reported as a Service error wrapping it.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindService, Err: err}
}

// ClientStatusAndError maps any error onto the client taxonomy.
func ClientStatusAndError(err error) (int, ClientError) {
	return As(err).ClientStatusAndError()
}

// Is reports whether any *Error of the given Kind appears in err's chain,
// including causes wrapped by an outer *Error.
func Is(err error, kind Kind) bool {
	for err != nil {
		var ae *Error
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Kind == kind {
			return true
		}
		err = ae.Err
	}
	return false
}

func LoginFail() *Error { return &Error{Kind: KindLoginFail} }

func NoAuth(cause error) *Error { return &Error{Kind: KindAuthFailNoAuth, Err: cause} }

func TokenWrongFormat(detail string) *Error {
	return &Error{Kind: KindAuthFailTokenWrongFormat, Detail: detail}
}

func InvalidParams(detail string, cause error) *Error {
	return &Error{Kind: KindInvalidParams, Detail: detail, Err: cause}
}

// NotFound reports a missing entity, e.g. NotFound("ticket", 7).
func NotFound(entity string, id uint64) *Error {
	return &Error{Kind: KindEntityNotFound, Entity: entity, ID: id}
}

// NotOwned reports an ownership mismatch on entity id for subject.
func NotOwned(entity string, id, subject uint64) *Error {
	return &Error{Kind: KindEntityNotOwned, Entity: entity, ID: id, Detail: fmt.Sprintf("subject %d is not the owner", subject)}
}

// Service wraps an unclassified failure.
func Service(err error) *Error { return &Error{Kind: KindService, Err: err} }
