package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keithlinneman/ipview/internal/cfg"
	"github.com/keithlinneman/ipview/internal/health"
	"github.com/keithlinneman/ipview/internal/httpmw"
	"github.com/keithlinneman/ipview/internal/httpserver"
	"github.com/keithlinneman/ipview/internal/log"
	"github.com/keithlinneman/ipview/internal/metrics"
	"github.com/keithlinneman/ipview/internal/opshttp"
	"github.com/keithlinneman/ipview/internal/otelx"
	"github.com/keithlinneman/ipview/internal/prof"
	"github.com/keithlinneman/ipview/internal/ratelimit"
	"github.com/keithlinneman/ipview/internal/sitehttp"
	"github.com/keithlinneman/ipview/internal/static"
	v "github.com/keithlinneman/ipview/internal/version"
	"github.com/keithlinneman/ipview/internal/view"
	"github.com/keithlinneman/ipview/internal/webassets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion, vi.Dirty(),
		)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// levels were checked by Validate
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Commit:            vi.Commit,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSONFormat:        conf.LogJSON,
		IncludeErrorLinks: conf.IncludeErrorLinks,
		MaxErrorLinks:     conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.Dirty(),
		"site_addr", httpserver.SiteAddr,
		"admin_port", conf.AdminPort,
		"static_root", conf.StaticRoot,
		"trusted_hops", conf.TrustedHops,
		"rate_limit_rps", conf.RateLimitRPS,
		"rate_limit_burst", conf.RateLimitBurst,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion("server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
		OnActive: m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer func() { stopProf() }()

	// collector runs on localhost, hence insecure
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
		Logger:    L,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	tmpl, err := view.ParseTemplates(webassets.Templates())
	if err != nil {
		L.Error(ctx, err, "failed to parse page templates")
		os.Exit(1)
	}
	pipeline, err := view.New(tmpl, view.PipelineOptions{
		Logger:     L,
		OnRendered: m.IncPageRendered,
		OnFailure:  m.IncViewFailure,
	})
	if err != nil {
		L.Error(ctx, err, "failed to build view pipeline")
		os.Exit(1)
	}

	if st, err := os.Stat(conf.StaticRoot); err != nil || !st.IsDir() {
		L.Warn(ctx, "static root is not a directory, script and style requests will 404", "static_root", conf.StaticRoot)
	}
	files, err := static.New(static.Options{
		Logger: L,
		Root:   os.DirFS(conf.StaticRoot),
		Dirs:   sitehttp.StaticDirs,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create static handler")
		os.Exit(1)
	}
	routes := sitehttp.New(pipeline, files)

	var gate health.ShutdownGate
	readiness := health.All(gate.Probe())

	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
		ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
		// logged once per visitor entry
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "client.address", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
	)

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Routes:       routes.RegisterRoutes,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		L.Error(ctx, err, "failed to start site http listener", "addr", httpserver.SiteAddr)
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// ops listener rejects public peers in middleware
	opsHTTPStop, err := opshttp.Start(ctx, opshttp.Options{
		Logger:       L,
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd not notified", "err", err)
	}

	<-ctx.Done()
	stop()

	L.Info(context.Background(), "shutdown signal received")
	gate.Set("draining")

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.DrainTimeout):
		L.Info(context.Background(), "drain period complete", "drain_timeout", conf.DrainTimeout.String())
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
}

// notifySystemd sends READY=1 when started under systemd Type=notify.
func notifySystemd() error {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		_ = conn.Close()
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	return conn.Close()
}
