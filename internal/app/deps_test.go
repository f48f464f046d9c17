package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidtube/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Ping(context.Context) error { return nil }

func (fakePool) Close() {}

func testConfig() config.Config {
	return config.Config{
		AppPort:       8000,
		StatsCacheTTL: time.Second,
		Auth: config.AuthConfig{
			AccessSecret:  "access-secret-access-secret-access-secret",
			AccessTTL:     time.Minute,
			RefreshSecret: "refresh-secret-refresh-secret-refresh-secret",
			RefreshTTL:    time.Hour,
			BcryptCost:    4,
		},
		ObjectStore: config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"},
		Media:       config.MediaConfig{FFProbePath: "ffprobe", ReaperWorkers: 1, ReaperQueue: 4, MaxUploadMB: 1},
		RateLimit:   config.RateLimitConfig{Requests: 5, Window: time.Minute, Burst: 5, TTL: time.Minute},
	}
}

func TestBuildDependencies(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, cleanup, err := buildDependencies(context.Background(), fakePool{}, testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleanup == nil {
		t.Fatal("expected cleanup function")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := cleanup(ctx); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	}()

	if deps.Accounts == nil || deps.Videos == nil || deps.Social == nil {
		t.Fatal("expected services to be configured")
	}
	if deps.Views == nil || deps.Stats == nil {
		t.Fatal("expected view composer and stats to be configured")
	}
	if deps.Authenticator == nil {
		t.Fatal("expected authenticator to be configured")
	}
	if deps.Limiter == nil {
		t.Fatal("expected rate limiter to be configured")
	}
	if deps.MaxUploadSize != 1024*1024 {
		t.Fatalf("expected upload limit of 1MiB got %d", deps.MaxUploadSize)
	}
}

func TestBuildDependenciesRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RefreshSecret = cfg.Auth.AccessSecret

	if _, _, err := buildDependencies(context.Background(), fakePool{}, cfg, nil); err == nil {
		t.Fatal("expected error for identical secrets")
	}

	cfg = testConfig()
	cfg.ObjectStore.Bucket = ""
	if _, _, err := buildDependencies(context.Background(), fakePool{}, cfg, nil); err == nil {
		t.Fatal("expected error for missing bucket")
	}
}
