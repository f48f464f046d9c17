package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestNewAppliesDefaults(t *testing.T) {
	srv := New(8080, http.NotFoundHandler(), Options{})

	if got := srv.Addr(); got != ":8080" {
		t.Fatalf("expected :8080 got %s", got)
	}
	if srv.inner.WriteTimeout != 5*time.Minute {
		t.Fatalf("expected long write timeout got %s", srv.inner.WriteTimeout)
	}
	if srv.shutdownTimeout != 10*time.Second {
		t.Fatalf("expected default shutdown timeout got %s", srv.shutdownTimeout)
	}
}

func TestStartReturnsNilAfterShutdown(t *testing.T) {
	srv := New(0, http.NotFoundHandler(), Options{ShutdownTimeout: time.Second})

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(50 * time.Millisecond)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after shutdown got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
