// ABOUTME: Demo login endpoint that issues the identity cookie
// ABOUTME: Accepts one configured username/password pair; no real credential store

package server

import (
	"crypto/subtle"
	"net/http"

	"github.com/2389/ticketd/internal/apperr"
	"github.com/2389/ticketd/internal/auth"
)

// LoginRequest is the JSON request body for POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for a successful login.
type LoginResponse struct {
	Result LoginResult `json:"result"`
}

// LoginResult reports the login outcome.
type LoginResult struct {
	Success bool `json:"success"`
}

// handleLogin handles POST /api/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	if !s.checkDemoCredentials(req.Username, req.Password) {
		s.fail(w, r, apperr.LoginFail())
		return
	}

	subject := s.config.Auth.DemoSubjectID
	auth.SetTokenCookie(w, s.config.Auth.CookieName, auth.GenerateToken(subject))
	s.logger.Info("login succeeded", "username", req.Username, "subject_id", subject)
	writeJSON(w, http.StatusOK, LoginResponse{Result: LoginResult{Success: true}})
}

func (s *Server) checkDemoCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.config.Auth.DemoUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.config.Auth.DemoPassword)) == 1
	return userOK && passOK
}
