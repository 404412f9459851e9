package prof

import (
	"context"
	"strings"
	"testing"

	"github.com/keithlinneman/ipview/internal/log"
)

func TestStart_Disabled(t *testing.T) {
	var active []bool
	stop, err := Start(context.Background(), Options{
		Enabled:       false,
		ServerAddress: "not even a url",
		OnActive:      func(v bool) { active = append(active, v) },
	})
	if err != nil {
		t.Fatalf("disabled Start: %v", err)
	}
	if stop == nil {
		t.Fatal("stop is nil")
	}
	stop()
	stop()
	if len(active) != 1 || active[0] {
		t.Fatalf("OnActive calls = %v, want [false]", active)
	}
}

func TestStart_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"empty address", Options{AppName: "ipview"}, "invalid server address"},
		{"no scheme", Options{AppName: "ipview", ServerAddress: "pyroscope:4040"}, "want http(s)"},
		{"bad scheme", Options{AppName: "ipview", ServerAddress: "grpc://pyroscope:4040"}, "want http(s)"},
		{"no app", Options{ServerAddress: "http://pyroscope:4040"}, "app name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var active []bool
			tt.opts.Enabled = true
			tt.opts.OnActive = func(v bool) { active = append(active, v) }
			ctx := log.WithContext(context.Background(), log.Nop())

			stop, err := Start(ctx, tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
			if stop == nil {
				t.Fatal("stop is nil on error")
			}
			stop()
			if len(active) != 1 || active[0] {
				t.Fatalf("OnActive calls = %v, want [false]", active)
			}
		})
	}
}

func TestStart_UnreachableServer(t *testing.T) {
	// pyroscope uploads in the background, so Start may succeed
	var last bool
	stop, err := Start(context.Background(), Options{
		Enabled:       true,
		ServerAddress: "http://127.0.0.1:1",
		AppName:       "ipview.test",
		Tags:          map[string]string{"component": "test"},
		OnActive:      func(v bool) { last = v },
	})
	if stop == nil {
		t.Fatal("stop is nil")
	}
	if err == nil && !last {
		t.Fatal("OnActive(true) not reported after successful start")
	}
	stop()
	stop()
	if last {
		t.Fatal("still active after stop")
	}
}

func TestPyroLogger(t *testing.T) {
	l := pyroLogger{ctx: context.Background(), L: log.Nop()}
	l.Infof("upload %d", 1)
	l.Debugf("tick")
	l.Errorf("upload failed: %v", "refused")
}
