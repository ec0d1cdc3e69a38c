package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/danmuck/nslisting/internal/config"
	"github.com/danmuck/nslisting/internal/namespace"
	"github.com/danmuck/nslisting/internal/testutil/testlog"
	"github.com/danmuck/nslisting/internal/testutil/tlstest"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func serveInBackground(t *testing.T, cfg config.ServerConfig) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	store := namespace.NewStore(namespace.NewMemoryBackend(), log.Logger)
	t.Cleanup(func() { _ = store.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(cfg, store).ServeListener(ctx, ln)
	}()
	return ln.Addr().String(), cancel, done
}

func waitShutdown(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestServeListenerPlainHTTP(t *testing.T) {
	addr, cancel, done := serveInBackground(t, config.DefaultServerConfig())

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	waitShutdown(t, cancel, done)
}

func TestServeListenerTLS(t *testing.T) {
	dir := t.TempDir()
	ca := tlstest.NewAuthority(t, dir)
	cfg := config.DefaultServerConfig()
	cfg.TLSCertFile, cfg.TLSKeyFile = ca.IssueServerCert(t, dir, "nsd")
	addr, cancel, done := serveInBackground(t, cfg)

	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: ca.ClientConfig()},
	}
	resp, err := client.Get("https://" + addr + "/health")
	if err != nil {
		t.Fatalf("get health over tls: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.TLS == nil {
		t.Fatalf("unexpected response: status=%d tls=%v", resp.StatusCode, resp.TLS != nil)
	}

	if _, err := http.Get("https://" + addr + "/health"); err == nil {
		t.Fatalf("untrusted client must fail verification")
	}
	waitShutdown(t, cancel, done)
}
