// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// The shapedemo command walks through the lockguard.io/protected API on a
// catalog of shapes and then hammers one of them from many goroutines.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/prometheus/client_golang/prometheus"
	gsync "gvisor.dev/gvisor/pkg/sync"
	"lockguard.io/envknob"
	"lockguard.io/internal/shapes"
	"lockguard.io/locks"
	"lockguard.io/protected"
	"lockguard.io/syncs"
	"lockguard.io/types/logger"
)

var verboseKnob = envknob.RegisterBool("LOCKGUARD_DEMO_VERBOSE")

type config struct {
	workers int
	iters   int
	hold    time.Duration
	lock    string
	envFile string
	verbose bool
}

func newFlagSet(cfg *config) *flag.FlagSet {
	fs := flag.NewFlagSet("shapedemo", flag.ContinueOnError)
	fs.IntVar(&cfg.workers, "workers", 10, "number of goroutines in the stress phase")
	fs.IntVar(&cfg.iters, "iters", 1000, "iterations per goroutine in the stress phase")
	fs.DurationVar(&cfg.hold, "hold", 500*time.Millisecond, "how long the walkthrough holds an exclusive guard while a reader waits")
	fs.StringVar(&cfg.lock, "lock", "rw", "lock guarding each shape: rw, fair, gvisor or instrumented")
	fs.StringVar(&cfg.envFile, "envfile", "", "optional file of KEY=value lines applied as environment knobs")
	fs.BoolVar(&cfg.verbose, "v", false, "log every write in the stress phase (rate limited)")
	return fs
}

func newCommand(stdout io.Writer) *ffcli.Command {
	var cfg config
	return &ffcli.Command{
		Name:       "shapedemo",
		ShortUsage: "shapedemo [flags]",
		ShortHelp:  "Demonstrate protected containers on a catalog of shapes",
		LongHelp: strings.TrimSpace(`
The shapedemo command builds a few shapes, each owned by its own protected
container, and shows shared reads, exclusive writes and narrowing to a
concrete shape type. It then runs -workers goroutines that alternately read
and rename a square, -iters times each, and checks that no write was torn.

Every flag can also be set with an environment variable named after it,
prefixed with SHAPEDEMO_ (for example SHAPEDEMO_WORKERS=4).
`),
		FlagSet: newFlagSet(&cfg),
		Options: []ff.Option{ff.WithEnvVarPrefix("SHAPEDEMO")},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments: %q", args)
			}
			return run(ctx, stdout, cfg)
		},
	}
}

func main() {
	cmd := newCommand(os.Stdout)
	if err := cmd.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "shapedemo: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer, cfg config) error {
	if cfg.envFile != "" {
		if err := envknob.ApplyFile(cfg.envFile); err != nil {
			return err
		}
	}
	if cfg.workers < 1 || cfg.iters < 1 {
		return fmt.Errorf("-workers and -iters must be positive, got %d and %d", cfg.workers, cfg.iters)
	}
	logf := logger.Logf(func(format string, args ...any) {
		fmt.Fprintf(stdout, format+"\n", args...)
	})
	envknob.LogCurrent(logf)

	switch cfg.lock {
	case "rw":
		return demo[sync.RWMutex](ctx, logf, cfg)
	case "fair":
		return demo[locks.Fair](ctx, logf, cfg)
	case "gvisor":
		return demo[gsync.RWMutex](ctx, logf, cfg)
	case "instrumented":
		reg := prometheus.NewRegistry()
		if err := locks.Register(reg); err != nil {
			return fmt.Errorf("registering lock metrics: %w", err)
		}
		locks.SetLogf(logger.WithPrefix(logf, "[slow] "))
		defer locks.SetLogf(nil)
		if err := demo[locks.Instrumented](ctx, logf, cfg); err != nil {
			return err
		}
		return reportAcquisitions(logf, reg)
	}
	return fmt.Errorf("unknown -lock %q; want rw, fair, gvisor or instrumented", cfg.lock)
}

func demo[M any, PM syncs.RWLockerOf[M]](ctx context.Context, logf logger.Logf, cfg config) error {
	var m shapes.Manager[M, PM]
	m.Add(shapes.NewNamed("plain"))
	m.Add(shapes.NewCircle("ring", 1))
	sq := m.Add(shapes.NewSquare("box", 2))

	if err := walkthrough(ctx, logf, &m, sq, cfg.hold); err != nil {
		return err
	}
	return stress(ctx, logf, sq, cfg)
}

func walkthrough[M any, PM syncs.RWLockerOf[M]](ctx context.Context, logf logger.Logf, m *shapes.Manager[M, PM], sq *protected.Data[shapes.Shape, M, PM], hold time.Duration) error {
	logf("== %d shapes", m.Len())
	for i, h := range m.All() {
		protected.WithShared(h, func(s shapes.Shape) {
			logf("shape %d: %v", i, s)
		})
	}

	logf("== renaming %q under an exclusive guard", "box")
	g := sq.Exclusive()
	readerDone := make(chan string, 1)
	go func() {
		protected.WithShared(sq, func(s shapes.Shape) { readerDone <- s.Name() })
	}()
	select {
	case <-time.After(hold):
	case <-ctx.Done():
		g.Release()
		<-readerDone
		return ctx.Err()
	}
	logf("state while holding: %v", sq.State())
	g.Get().SetName("big box")
	g.Release()
	logf("waiting reader saw %q", <-readerDone)

	logf("== narrowing")
	logf("box is a *Square: %v; a *Circle: %v", protected.CanNarrow[*shapes.Square](sq), protected.CanNarrow[*shapes.Circle](sq))
	if g, ok := protected.TryNarrowShared[*shapes.Circle](sq); ok {
		g.Release()
		return errors.New("narrowed a square to *Circle")
	}
	protected.WithNarrowShared(sq, func(s *shapes.Square) {
		// Values have their own lock, so a shared holder may add to them.
		s.AddValue(1)
		s.AddValue(2)
		logf("shared narrowed: %v with %d values", s, s.NumValues())
	})
	protected.WithNarrowExclusive(sq, func(s **shapes.Square) {
		(*s).SetEdge((*s).Edge() * 2)
	})
	for _, h := range m.Squares() {
		protected.WithShared(h, func(s *shapes.Square) {
			logf("square handle: %v, area %g", s, s.Area())
		})
	}
	logf("total area: %.3f", m.TotalArea())
	return nil
}

func stress[M any, PM syncs.RWLockerOf[M]](ctx context.Context, logf logger.Logf, sq *protected.Data[shapes.Shape, M, PM], cfg config) error {
	logf("== stress: %d workers x %d iterations", cfg.workers, cfg.iters)
	vlogf := logger.Discard
	if cfg.verbose || verboseKnob() {
		vlogf = logger.RateLimitedFn(logf, time.Second, 10, 100)
	}
	wrote := make(map[string]bool)
	var wroteMu sync.Mutex

	// Workers wait for each other so that they contend from the first iteration.
	ready := syncs.NewWaitGroupChan()
	ready.Add(cfg.workers)
	start := time.Now()
	var g taskgroup.Group
	for w := range cfg.workers {
		g.Go(func() error {
			ready.Decr()
			ready.Wait()
			for i := range cfg.iters {
				if err := ctx.Err(); err != nil {
					return err
				}
				if i%2 == 0 {
					var name string
					protected.WithShared(sq, func(s shapes.Shape) { name = s.Name() })
					if !validName(name) {
						return fmt.Errorf("worker %d read torn name %q", w, name)
					}
					continue
				}
				name := fmt.Sprintf("box-%d-%d", w, i)
				protected.WithNarrowExclusive(sq, func(s **shapes.Square) {
					(*s).SetName(name)
				})
				vlogf("worker %d renamed to %q", w, name)
				wroteMu.Lock()
				wrote[name] = true
				wroteMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var final string
	protected.WithShared(sq, func(s shapes.Shape) { final = s.Name() })
	if len(wrote) > 0 && !wrote[final] {
		return fmt.Errorf("final name %q was never written", final)
	}
	logf("final name %q after %d writes in %v", final, len(wrote), time.Since(start).Round(time.Millisecond))
	if rss, ok := logger.PeakRSS(); ok {
		logf("peak RSS: %.1f MiB", float64(rss)/(1<<20))
	}
	return nil
}

func validName(name string) bool {
	if name == "big box" {
		return true
	}
	var w, i int
	n, err := fmt.Sscanf(name, "box-%d-%d", &w, &i)
	return err == nil && n == 2 && name == fmt.Sprintf("box-%d-%d", w, i)
}

func reportAcquisitions(logf logger.Logf, reg *prometheus.Registry) error {
	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering lock metrics: %w", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "lockguard_lock_acquisitions_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "mode" {
					logf("%s holds granted: %.0f", lp.GetValue(), m.GetCounter().GetValue())
				}
			}
		}
	}
	return nil
}
