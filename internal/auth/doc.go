// Package auth resolves request identity and gates protected routes.
//
// # Identity Token
//
// The auth cookie (default name "auth-token") carries a token of the form
//
//	user-<subject>.<signature>
//
// Tokens are parsed structurally only: the subject must be a number and the
// signature part must be non-empty. Nothing is cryptographically verified.
//
// # Pipeline Stages
//
//   - ResolveMiddleware runs for every request. It records one of Resolved,
//     NoToken or MalformedToken in the request context and never rejects.
//     A resolved token is written back to refresh the cookie; anything else
//     clears it.
//
//   - RequireAuth wraps the protected route group. Without a Resolved
//     outcome it fails the request with apperr.KindAuthFailNoAuth and the
//     wrapped handler never runs.
//
// Failures are attached to the request state (see package reqstate) and
// rendered by the server's response mapper; this package never writes error
// bodies itself.
package auth
