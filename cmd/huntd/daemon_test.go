package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"treasurehunt/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.ChainID = "hunt-daemon-test"
	cfg.RPC.ListenAddress = "127.0.0.1:0"
	cfg.Indexer.DSN = filepath.Join(cfg.DataDir, "indexer.db")
	cfg.Exports.Dir = filepath.Join(cfg.DataDir, "exports")
	return cfg
}

func startDaemon(t *testing.T, cfg *config.Config) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	d, err := newDaemon(ctx, cfg, logger)
	require.NoError(t, err)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.serve(ctx, listener) }()
	return "http://" + listener.Addr().String(), cancel, done
}

func chainInfo(t *testing.T, base string) map[string]any {
	t.Helper()
	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"hunt_chainInfo","params":[]}`)
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Post(base+"/rpc", "application/json", bytes.NewReader(body))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded.Result
}

func waitStopped(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatalf("daemon did not stop")
	}
}

func TestDaemonServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Indexer.Enabled = true
	cfg.Exports.Enabled = true

	base, cancel, done := startDaemon(t, cfg)
	info := chainInfo(t, base)
	require.Equal(t, "hunt-daemon-test", info["chainId"])

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	waitStopped(t, cancel, done)
}

func TestDaemonReopensPersistedState(t *testing.T) {
	cfg := testConfig(t)
	cfg.Indexer.Enabled = false

	base, cancel, done := startDaemon(t, cfg)
	first := chainInfo(t, base)
	waitStopped(t, cancel, done)

	base, cancel, done = startDaemon(t, cfg)
	second := chainInfo(t, base)
	waitStopped(t, cancel, done)

	require.Equal(t, first["stateRoot"], second["stateRoot"])
	require.Equal(t, first["height"], second["height"])
}
