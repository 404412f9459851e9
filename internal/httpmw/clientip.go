package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// ClientIPOptions configures client IP extraction behavior.
type ClientIPOptions struct {
	// TrustedHops is the number of trusted reverse proxies between the client
	// and this server. 0 = no proxies (X-Forwarded-For ignored), 1 = single
	// proxy (rightmost XFF entry), 2 = CDN + proxy (second from end), etc.
	TrustedHops int
}

// ClientIP resolves the client address with default options (no trusted proxies).
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions returns middleware that resolves the client IP and
// stores it in the request context. Requests whose peer address cannot be
// parsed continue without one.
func ClientIPWithOptions(opts ClientIPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithClientIP(r.Context(), extractRealClientAddr(r, opts.TrustedHops))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func stripForwarded(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}

// extractRealClientAddr returns the peer IP, or "" when RemoteAddr is not a
// valid ip:port. X-Forwarded-For is only consulted when the peer is private
// and trustedHops > 0; otherwise the forwarding headers are removed so
// nothing downstream trusts them by accident.
func extractRealClientAddr(r *http.Request, trustedHops int) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		stripForwarded(r)
		return ""
	}
	ip := net.ParseIP(host)
	if ip == nil {
		stripForwarded(r)
		return ""
	}
	clientAddr := ip.String()

	if !ip.IsPrivate() || trustedHops <= 0 {
		stripForwarded(r)
		return clientAddr
	}

	// select the Nth entry from the end, one per trusted proxy. fewer entries
	// than proxies is misconfiguration or spoofing: fail closed to the peer.
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		idx := len(parts) - trustedHops
		if idx < 0 {
			stripForwarded(r)
			return clientAddr
		}
		if candidate := net.ParseIP(strings.TrimSpace(parts[idx])); candidate != nil {
			clientAddr = candidate.String()
		}
	}
	return clientAddr
}

// ClientIPFromContext returns the resolved client IP, or "" if none was resolved.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
