package view

import (
	"errors"
	"net"
	"net/http"
	"net/netip"

	"github.com/keithlinneman/ipview/internal/httpmw"
	"github.com/keithlinneman/ipview/internal/xerrors"
)

var ErrNoClientAddr = errors.New("view: no client address")

// PageFunc is the page handler stage. It fills the body slot and writes
// nothing to the response.
type PageFunc func(r *http.Request, frags *Fragments) error

// Home renders the visitor's IP address into the body slot.
func Home(t *Template) PageFunc {
	return func(r *http.Request, frags *Fragments) error {
		addr, err := ClientAddr(r)
		if err != nil {
			return err
		}
		body, err := t.render(tmplHome, struct{ Addr string }{Addr: addr.String()})
		if err != nil {
			return err
		}
		return frags.Set(SlotBody, body)
	}
}

// ClientAddr returns the request's source address: the one resolved by the
// client IP middleware, else the peer address. IPv4-mapped addresses are
// unmapped and zones dropped.
func ClientAddr(r *http.Request) (netip.Addr, error) {
	raw := httpmw.ClientIPFromContext(r.Context())
	if raw == "" {
		raw = r.RemoteAddr
		if host, _, err := net.SplitHostPort(raw); err == nil {
			raw = host
		}
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return netip.Addr{}, xerrors.Wrapf(ErrNoClientAddr, "remote addr %q", r.RemoteAddr)
	}
	return addr.Unmap().WithZone(""), nil
}
