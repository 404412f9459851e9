package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/ipview/internal/health"
	"github.com/keithlinneman/ipview/internal/httpmw"
	"github.com/keithlinneman/ipview/internal/log"
)

// SiteAddr is the fixed site listen address.
const SiteAddr = "localhost:3000"

type Options struct {
	Logger log.Logger

	// Routes registers the site routing table on the router.
	Routes func(chi.Router)

	Health    health.Probe
	Readiness health.Probe

	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions

	// MaxBodyBytes caps request bodies. default 1KB, nothing here accepts one.
	MaxBodyBytes int64

	// addr overrides SiteAddr; tests only.
	addr string
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1024
	}
	if o.addr == "" {
		o.addr = SiteAddr
	}
}
