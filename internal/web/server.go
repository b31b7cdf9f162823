// Package web serves a read-only JSON view of the control loop.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"pid-fan-controller/internal/fancontrol"
)

// SnapshotSource is implemented by *fancontrol.Controller. Snapshot must be
// safe to call while the loop is ticking.
type SnapshotSource interface {
	Snapshot() fancontrol.Snapshot
}

type statusResponse struct {
	Service string `json:"service"`
	NowUTC  string `json:"now_utc"`
	fancontrol.Snapshot
}

func Handler(src SnapshotSource) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp := statusResponse{
			Service:  "pid-fan-controller",
			NowUTC:   time.Now().UTC().Format(time.RFC3339Nano),
			Snapshot: src.Snapshot(),
		}
		b, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			http.Error(w, "marshal failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		_, _ = w.Write([]byte("\n"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return mux
}

// Listen binds addr. It is separate from Serve so a bad or busy address is
// reported before the caller commits to anything.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Serve answers requests on ln until ctx is done. ln is closed on return.
func Serve(ctx context.Context, ln net.Listener, src SnapshotSource) error {
	srv := &http.Server{
		Handler:           Handler(src),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
