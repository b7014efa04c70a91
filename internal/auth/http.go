// ABOUTME: HTTP middleware that resolves the auth cookie and gates protected routes
// ABOUTME: Resolution never rejects; RequireAuth short-circuits without a resolved Ctx

package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/2389/ticketd/internal/apperr"
	"github.com/2389/ticketd/internal/reqstate"
)

// DefaultCookieName is the cookie carrying the identity token.
const DefaultCookieName = "auth-token"

// Resolve inspects the named cookie in r and classifies it.
func Resolve(r *http.Request, cookieName string) (Resolution, string) {
	cookie, err := r.Cookie(cookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return Resolution{Outcome: NoToken}, ""
	}
	if err != nil {
		return Resolution{Outcome: MalformedToken, Err: apperr.TokenWrongFormat(err.Error())}, ""
	}

	subject, err := ParseToken(cookie.Value)
	if err != nil {
		return Resolution{Outcome: MalformedToken, Err: err}, cookie.Value
	}
	return Resolution{Outcome: Resolved, Ctx: Ctx{SubjectID: subject}}, cookie.Value
}

// SetTokenCookie writes the identity token cookie, replacing any earlier
// Set-Cookie for the same name on this response.
func SetTokenCookie(w http.ResponseWriter, name, token string) {
	replaceCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the identity token cookie.
func ClearTokenCookie(w http.ResponseWriter, name string) {
	replaceCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func replaceCookie(w http.ResponseWriter, c *http.Cookie) {
	h := w.Header()
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, c.Name+"=") {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(w, c)
}

// ResolveMiddleware resolves the identity cookie for every request and attaches
// the Resolution to the request context. It never rejects the request.
// A resolved token is written back to refresh the cookie; a missing or
// malformed one is cleared.
func ResolveMiddleware(cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, token := Resolve(r, cookieName)
			st := reqstate.From(r.Context())

			switch res.Outcome {
			case Resolved:
				SetTokenCookie(w, cookieName, token)
				if st != nil {
					st.SetSubject(res.Ctx.SubjectID)
				}
			case MalformedToken:
				ClearTokenCookie(w, cookieName)
				if st != nil {
					st.SetResolveErr(res.Err)
				}
				logger.Debug("identity token rejected", "error", res.Err)
			default:
				ClearTokenCookie(w, cookieName)
			}

			next.ServeHTTP(w, r.WithContext(WithResolution(r.Context(), res)))
		})
	}
}

// RequireAuth creates an HTTP middleware that requires a resolved Ctx.
// Must be used after ResolveMiddleware. Without one the request fails with
// KindAuthFailNoAuth (caused by the resolution failure, if any) and next is
// never called.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := ResolutionFrom(r.Context())
			if !ok || res.Outcome != Resolved {
				Fail(w, r, apperr.NoAuth(res.Err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Fail attaches err to the request state for the response mapper. When the
// request runs outside the mapper it falls back to a bare status code so the
// failure is never silently turned into a 200.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	if reqstate.Fail(r.Context(), err) || reqstate.From(r.Context()) != nil {
		return
	}
	status, _ := apperr.ClientStatusAndError(err)
	w.WriteHeader(status)
}
