package daemon

import (
	"context"
	"testing"

	"rythmx/internal/logging"
	"rythmx/internal/testsupport"
)

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = "127.0.0.1:0"
	st := testsupport.MustOpenStore(t, cfg)

	first, err := New(cfg, Components{Store: st, Scheduler: &fakeCycler{}}, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	secondCfg := *cfg
	secondCfg.API.Bind = ""
	second, err := New(&secondCfg, Components{Store: st, Scheduler: &fakeCycler{}}, logging.NewNop())
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonStartIdempotentStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = ""
	st := testsupport.MustOpenStore(t, cfg)

	d, err := New(cfg, Components{Store: st, Scheduler: &fakeCycler{}}, logging.NewNop())
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("double start accepted")
	}
	d.Stop()
	d.Stop()
}
