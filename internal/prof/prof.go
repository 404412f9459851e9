// Package prof runs continuous profiling with Pyroscope.
package prof

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/ipview/internal/log"
	"github.com/keithlinneman/ipview/internal/xerrors"
)

type Options struct {
	Enabled              bool
	AppName              string
	ServerAddress        string
	AuthToken            string
	TenantID             string
	Tags                 map[string]string
	ProfileMutexFraction int
	BlockProfileRate     int

	// OnActive reports whether the profiler is running, for the
	// profiling_active gauge.
	OnActive func(bool)
}

func (o *Options) validate() error {
	if o.ServerAddress == "" {
		return xerrors.Newf("invalid server address (%q)", o.ServerAddress)
	}
	u, err := url.Parse(o.ServerAddress)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return xerrors.Newf("invalid server address (%q): want http(s)://host[:port]", o.ServerAddress)
	}
	if o.AppName == "" {
		return xerrors.New("app name is required")
	}
	return nil
}

func (o *Options) active(v bool) {
	if o.OnActive != nil {
		o.OnActive(v)
	}
}

// Start begins profiling and returns its stop func. The stop func is never
// nil, idempotent and safe to call when Start failed.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		opts.active(false)
		return func() {}, nil
	}

	if err := opts.validate(); err != nil {
		L.Error(ctx, err, "pyroscope options")
		opts.active(false)
		return func() {}, err
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}
	cfg := pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		AuthToken:       opts.AuthToken,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		Logger:          pyroLogger{ctx: ctx, L: L},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	}

	profiler, err := pyroscope.Start(cfg)
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed",
			"server_address", opts.ServerAddress,
			"app_name", opts.AppName,
		)
		opts.active(false)
		return func() {}, err
	}

	L.Info(ctx, "pyroscope started",
		"server_address", opts.ServerAddress,
		"app_name", opts.AppName,
	)
	opts.active(true)

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = profiler.Stop()
			opts.active(false)
			L.Info(context.Background(), "pyroscope stopped",
				"server_address", opts.ServerAddress,
				"app_name", opts.AppName,
			)
		})
	}, nil
}

// pyroLogger routes the profiler's own messages into the service logger.
type pyroLogger struct {
	ctx context.Context
	L   log.Logger
}

func (p pyroLogger) Infof(format string, args ...any) {
	p.L.Debug(p.ctx, fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (p pyroLogger) Debugf(format string, args ...any) {
	p.L.Debug(p.ctx, fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (p pyroLogger) Errorf(format string, args ...any) {
	p.L.Warn(p.ctx, fmt.Sprintf(format, args...), "component", "pyroscope")
}
