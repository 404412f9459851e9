// Package ratelimit is per-visitor rate limiting middleware for the site
// listener, keyed by the client address resolved in httpmw.
//
// It is in-memory and local to one process. It bounds what a single address
// can cost the server; it does nothing against many addresses at once.
package ratelimit
