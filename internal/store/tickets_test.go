// ABOUTME: Unit tests for the in-memory ticket store
// ABOUTME: Covers id allocation, delete gaps, ownership policy and concurrent access

package store

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ticketd/internal/apperr"
	"github.com/2389/ticketd/internal/auth"
)

var (
	alice = auth.Ctx{SubjectID: 1}
	bob   = auth.Ctx{SubjectID: 2}
)

func TestTickets_Scenario(t *testing.T) {
	s := NewTickets(Options{})

	a := s.Create(alice, "A")
	assert.Equal(t, Ticket{ID: 1, OwnerID: 1, Title: "A"}, a)
	b := s.Create(alice, "B")
	assert.Equal(t, uint64(2), b.ID)

	assert.Equal(t, []Ticket{a, b}, s.List(alice))

	deleted, err := s.Delete(alice, 1)
	require.NoError(t, err)
	assert.Equal(t, a, deleted)

	assert.Equal(t, []Ticket{b}, s.List(alice))

	_, err = s.Delete(alice, 1)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindEntityNotFound))
	status, tag := apperr.ClientStatusAndError(err)
	assert.Equal(t, 404, status)
	assert.Equal(t, apperr.ClientEntityNotFound, tag)
}

func TestTickets_DeleteMissingLeavesStoreUnchanged(t *testing.T) {
	s := NewTickets(Options{})
	s.Create(alice, "A")
	s.Create(alice, "B")
	before := s.List(alice)

	for _, id := range []uint64{0, 3, 99} {
		t.Run(fmt.Sprintf("id %d", id), func(t *testing.T) {
			_, err := s.Delete(alice, id)
			require.Error(t, err)
			ae := apperr.As(err)
			assert.Equal(t, apperr.KindEntityNotFound, ae.Kind)
			assert.Equal(t, TicketEntity, ae.Entity)
			assert.Equal(t, id, ae.ID)
		})
	}

	assert.Equal(t, before, s.List(alice))
	assert.Equal(t, 2, s.Len())
}

func TestTickets_IdsNeverReused(t *testing.T) {
	s := NewTickets(Options{})
	s.Create(alice, "A")
	s.Create(alice, "B")
	s.Create(alice, "C")

	_, err := s.Delete(alice, 2)
	require.NoError(t, err)
	_, err = s.Delete(alice, 3)
	require.NoError(t, err)

	d := s.Create(alice, "D")
	assert.Equal(t, uint64(4), d.ID)

	list := s.List(alice)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(1), list[0].ID)
	assert.Equal(t, uint64(4), list[1].ID)
	assert.Equal(t, 2, s.Len())
}

func TestTickets_DefaultPolicyIsNotOwnerScoped(t *testing.T) {
	s := NewTickets(Options{})
	s.Create(alice, "alice's")

	assert.Len(t, s.List(bob), 1)

	_, err := s.Delete(bob, 1)
	assert.NoError(t, err)
}

func TestTickets_OwnerScoped(t *testing.T) {
	s := NewTickets(Options{OwnerScoped: true})
	s.Create(alice, "alice 1")
	s.Create(bob, "bob 1")
	s.Create(alice, "alice 2")

	aliceList := s.List(alice)
	require.Len(t, aliceList, 2)
	assert.Equal(t, "alice 1", aliceList[0].Title)
	assert.Equal(t, "alice 2", aliceList[1].Title)

	_, err := s.Delete(bob, 1)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindEntityNotOwned))
	assert.Equal(t, 3, s.Len(), "failed delete must not remove the ticket")

	got, err := s.Delete(alice, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice 1", got.Title)
}

func TestTickets_ReturnsCopies(t *testing.T) {
	s := NewTickets(Options{})
	created := s.Create(alice, "A")
	created.Title = "mutated"

	list := s.List(alice)
	list[0].Title = "mutated too"

	assert.Equal(t, "A", s.List(alice)[0].Title)
}

func TestTickets_ConcurrentCreate(t *testing.T) {
	s := NewTickets(Options{})
	const workers, perWorker = 16, 50

	var wg sync.WaitGroup
	ids := make(chan uint64, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- s.Create(auth.Ctx{SubjectID: uint64(w)}, fmt.Sprintf("w%d-%d", w, i)).ID
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	var got []uint64
	seen := make(map[uint64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		got = append(got, id)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })

	require.Len(t, got, workers*perWorker)
	for i, id := range got {
		assert.Equal(t, uint64(i+1), id)
	}

	list := s.List(alice)
	require.Len(t, list, workers*perWorker)
	for i, tk := range list {
		assert.Equal(t, uint64(i+1), tk.ID, "list must be in id order")
	}
}

func TestTickets_ConcurrentMixed(t *testing.T) {
	s := NewTickets(Options{})
	for i := 0; i < 100; i++ {
		s.Create(alice, "seed")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	deleted := 0
	for id := uint64(1); id <= 100; id++ {
		wg.Add(2)
		go func(id uint64) {
			defer wg.Done()
			// the second attempt must miss
			for k := 0; k < 2; k++ {
				if _, err := s.Delete(alice, id); err == nil {
					mu.Lock()
					deleted++
					mu.Unlock()
				}
			}
		}(id)
		go func() {
			defer wg.Done()
			list := s.List(alice)
			for i := 1; i < len(list); i++ {
				assert.Less(t, list[i-1].ID, list[i].ID)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, deleted)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.List(alice))
}
