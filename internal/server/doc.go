// Package server wires the ticketd HTTP surface.
//
// Every request runs through the same chain: the response mapper creates
// the request state and buffers the handler output, the identity resolver
// classifies the auth cookie, and the mux dispatches to a handler. Handlers
// never write error bodies. They attach a typed error with auth.Fail and the
// mapper renders it once as
//
//	{"error":{"type":"<TAG>","req_uuid":"<uuid>"}}
//
// The ticket routes sit behind auth.RequireAuth; /api/login, /hello,
// /hello2/{name} and the health checks do not.
package server
