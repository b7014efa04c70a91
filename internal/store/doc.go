// Package store holds the ticket resource store.
//
// Tickets live only in memory. A single *Tickets is created at startup and
// injected into the HTTP server; every handler shares it.
//
// # Ids
//
// Ids start at 1 and are the slot position plus one. Deleting a ticket
// empties its slot instead of shifting the slice, so ids stay stable and are
// never reused.
//
// # Concurrency
//
// All mutations take the write lock for the length of the in-memory change
// only; List and Len take the read lock and see a consistent snapshot.
//
// # Ownership
//
// By default any resolved identity may list and delete every ticket. With
// Options.OwnerScoped, List filters to the caller's tickets and Delete
// returns apperr.KindEntityNotOwned for someone else's ticket.
package store
