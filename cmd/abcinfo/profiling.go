package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime/trace"
	"time"
)

// profiler serves pprof endpoints and/or records an execution trace for the
// lifetime of one command.
type profiler struct {
	addr      string
	tracePath string
	errOut    io.Writer

	server    *http.Server
	traceFile *os.File
}

func (p *profiler) start() error {
	if p.addr != "" {
		mux := http.NewServeMux()
		// Registered explicitly so nothing depends on the default mux.
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		p.server = &http.Server{Addr: p.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(p.errOut, "profiling server error: %v\n", err)
			}
		}()
		fmt.Fprintf(p.errOut, "profiling server on %s, e.g. curl http://%s/debug/pprof/heap > heap.prof\n", p.addr, p.addr)
	}

	if p.tracePath != "" {
		f, err := os.Create(p.tracePath)
		if err != nil {
			p.stop()
			return fmt.Errorf("create trace file: %w", err)
		}
		if err := trace.Start(f); err != nil {
			f.Close()
			p.stop()
			return fmt.Errorf("start trace: %w", err)
		}
		p.traceFile = f
	}
	return nil
}

func (p *profiler) stop() {
	if p == nil {
		return
	}
	if p.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.server.Shutdown(ctx); err != nil {
			fmt.Fprintf(p.errOut, "shutting down profiling server: %v\n", err)
		}
		p.server = nil
	}
	if p.traceFile != nil {
		trace.Stop()
		p.traceFile.Close()
		p.traceFile = nil
	}
}
