package main

import (
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestRunServerWaitsForInFlightRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		finished.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})}

	quit := make(chan os.Signal, 1)
	var stopped atomic.Bool
	returned := make(chan error, 1)
	go func() { returned <- runServer(server, ln, quit, func() { stopped.Store(true) }) }()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the handler")
	}

	quit <- syscall.SIGTERM

	select {
	case err := <-returned:
		t.Fatalf("runServer returned with a request in flight: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("runServer: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after the request finished")
	}
	if !finished.Load() {
		t.Error("runServer returned before the handler finished")
	}
	if !stopped.Load() {
		t.Error("stop callback not called")
	}
}

func TestRunServerReportsServeErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ln.Close()

	quit := make(chan os.Signal)
	defer close(quit)
	if err := runServer(&http.Server{}, ln, quit, func() {}); err == nil {
		t.Error("expected an error serving on a closed listener")
	}
}
