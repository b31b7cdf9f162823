package web

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pid-fan-controller/internal/fancontrol"
)

type fixedSnapshot fancontrol.Snapshot

func (s fixedSnapshot) Snapshot() fancontrol.Snapshot { return fancontrol.Snapshot(s) }

func testSnapshot() fixedSnapshot {
	return fixedSnapshot{
		Sources: []fancontrol.SourceStatus{{Name: "cpu", Reading: 61.5, Output: 0.575}},
		Fans:    []fancontrol.FanStatus{{Name: "case", PWM: 136, Written: true}},
	}
}

func TestAPIStatus(t *testing.T) {
	ts := httptest.NewServer(Handler(testSnapshot()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}

	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if got.Service != "pid-fan-controller" {
		t.Fatalf("service=%q", got.Service)
	}
	if len(got.Sources) != 1 || got.Sources[0].Name != "cpu" || got.Sources[0].Reading != 61.5 {
		t.Fatalf("sources=%+v", got.Sources)
	}
	if len(got.Fans) != 1 || got.Fans[0].PWM != 136 || !got.Fans[0].Written {
		t.Fatalf("fans=%+v", got.Fans)
	}
}

func TestAPIStatus_InfiniteOutput(t *testing.T) {
	snap := testSnapshot()
	snap.Sources[0].Output = fancontrol.StatusFloat(math.Inf(1))
	snap.Sources[0].Critical = true
	ts := httptest.NewServer(Handler(snap))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if !math.IsInf(float64(got.Sources[0].Output), 1) || !got.Sources[0].Critical {
		t.Fatalf("sources=%+v", got.Sources)
	}
}

func TestAPIStatus_MethodNotAllowed(t *testing.T) {
	ts := httptest.NewServer(Handler(testSnapshot()))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatalf("post status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != http.MethodGet {
		t.Fatalf("allow=%q", allow)
	}
}

func TestUnknownPath(t *testing.T) {
	ts := httptest.NewServer(Handler(testSnapshot()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ln, testSnapshot()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after cancel")
	}
}

func TestListen_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	if _, err := Listen(ln.Addr().String()); err == nil {
		t.Fatalf("expected error for address in use")
	}
}

func TestServe_ClosedListener(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ln.Close()

	err = Serve(context.Background(), ln, testSnapshot())
	if err == nil {
		t.Fatalf("expected error serving on a closed listener")
	}
}
