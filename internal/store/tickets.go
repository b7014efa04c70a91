// ABOUTME: In-memory ticket store shared by all request handlers
// ABOUTME: One RWMutex orders every mutation; ids are slot indexes and never reused

package store

import (
	"sync"

	"github.com/2389/ticketd/internal/apperr"
	"github.com/2389/ticketd/internal/auth"
)

// TicketEntity is the entity name used in not-found and ownership errors.
const TicketEntity = "ticket"

// Ticket is a single ticket. Values handed out by the store are copies.
type Ticket struct {
	ID      uint64 `json:"id"`
	OwnerID uint64 `json:"cid"`
	Title   string `json:"title"`
}

// TicketStore is the set of operations handlers need.
type TicketStore interface {
	Create(owner auth.Ctx, title string) Ticket
	List(caller auth.Ctx) []Ticket
	Delete(caller auth.Ctx, id uint64) (Ticket, error)
	Len() int
}

// Options tunes store policy.
type Options struct {
	// OwnerScoped restricts List to the caller's tickets and makes Delete
	// fail with KindEntityNotOwned for tickets owned by someone else.
	OwnerScoped bool
}

// Tickets is the in-memory TicketStore. The zero value is not usable; call
// NewTickets. A *Tickets is shared by pointer between handlers.
type Tickets struct {
	mu    sync.RWMutex
	slots []*Ticket // slot i holds id i+1; nil after delete
	live  int
	opts  Options
}

// NewTickets creates an empty ticket store.
func NewTickets(opts Options) *Tickets {
	return &Tickets{opts: opts}
}

// Create allocates the next id and stores a ticket owned by owner.
func (s *Tickets) Create(owner auth.Ctx, title string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Ticket{
		ID:      uint64(len(s.slots)) + 1,
		OwnerID: owner.SubjectID,
		Title:   title,
	}
	s.slots = append(s.slots, t)
	s.live++
	return *t
}

// List returns live tickets in id order.
func (s *Tickets) List(caller auth.Ctx) []Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Ticket, 0, s.live)
	for _, t := range s.slots {
		if t == nil {
			continue
		}
		if s.opts.OwnerScoped && t.OwnerID != caller.SubjectID {
			continue
		}
		out = append(out, *t)
	}
	return out
}

// Delete removes and returns the ticket with the given id.
func (s *Tickets) Delete(caller auth.Ctx, id uint64) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 || id > uint64(len(s.slots)) || s.slots[id-1] == nil {
		return Ticket{}, apperr.NotFound(TicketEntity, id)
	}

	t := s.slots[id-1]
	if s.opts.OwnerScoped && t.OwnerID != caller.SubjectID {
		return Ticket{}, apperr.NotOwned(TicketEntity, id, caller.SubjectID)
	}

	s.slots[id-1] = nil
	s.live--
	return *t, nil
}

// Len returns the number of live tickets.
func (s *Tickets) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}
