// ABOUTME: HTTP handlers for the protected ticket API
// ABOUTME: Handlers attach typed errors to the request state and never write error bodies

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/2389/ticketd/internal/apperr"
	"github.com/2389/ticketd/internal/auth"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// CreateTicketRequest is the JSON request body for POST /api/tickets.
type CreateTicketRequest struct {
	Title string `json:"title"`
}

// handleCreateTicket handles POST /api/tickets.
func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	title, err := s.validateTitle(req.Title)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	caller := auth.MustFromContext(r.Context())
	ticket := s.tickets.Create(caller, title)
	s.logger.Debug("ticket created", "id", ticket.ID, "owner", ticket.OwnerID)
	writeJSON(w, http.StatusOK, ticket)
}

// handleListTickets handles GET /api/tickets.
func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, s.tickets.List(caller))
}

// handleDeleteTicket handles DELETE /api/tickets/{id}.
func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.fail(w, r, apperr.InvalidParams(fmt.Sprintf("ticket id %q", raw), err))
		return
	}

	caller := auth.MustFromContext(r.Context())
	ticket, err := s.tickets.Delete(caller, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// validateTitle trims title and enforces the creation policy: non-empty and
// at most tickets.max_title_length bytes when that is set.
func (s *Server) validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.InvalidParams("title is empty", nil)
	}
	if limit := s.config.Tickets.MaxTitleLength; limit > 0 && len(title) > limit {
		return "", apperr.InvalidParams(fmt.Sprintf("title is %d bytes, limit %d", len(title), limit), nil)
	}
	return title, nil
}

// fail hands err to the response mapper.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	auth.Fail(w, r, err)
}

// decodeJSON decodes a single JSON object from body into v.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.InvalidParams("invalid JSON body", err)
	}
	if dec.More() {
		return apperr.InvalidParams("trailing data after JSON body", nil)
	}
	return nil
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
