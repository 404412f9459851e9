package opshttp

import (
	"net/http"

	"github.com/keithlinneman/ipview/internal/health"
	"github.com/keithlinneman/ipview/internal/log"
)

const DefaultPort = 9000

type Options struct {
	Logger      log.Logger
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe

	UseRecoverMW bool
	OnPanic      func()
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
}
