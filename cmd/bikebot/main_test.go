package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/bikebot/internal/config"
	"github.com/zhouzirui/bikebot/internal/model/catalog"
	"github.com/zhouzirui/bikebot/internal/service/reply"
)

func TestCatalogCommandPrintsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brand: PedalPal\n"), 0o600))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"catalog", "--env-file", filepath.Join(t.TempDir(), "none.env"), "--catalog", path})
	require.NoError(t, cmd.Execute())

	var printed catalog.Catalog
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, "PedalPal", printed.Brand)
	assert.Equal(t, catalog.Seed().Responses, printed.Responses)
}

func TestBuildReplySourceWithoutCredentials(t *testing.T) {
	cfg := &config.Config{}
	src, err := buildReplySource(context.Background(), cfg, catalog.Seed())
	require.NoError(t, err)
	_, ok := src.(*reply.Catalog)
	assert.True(t, ok)
}

func startServer(t *testing.T) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := &config.Config{
		Server: config.ServerConfig{Addr: addr},
		Chat: config.ChatConfig{
			ReplyDelayMin: time.Millisecond,
			ReplyDelayMax: 2 * time.Millisecond,
			IdleTTL:       time.Minute,
			SweepInterval: time.Minute,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	return "http://" + addr, cancel, done
}

func TestServeStopsOnCancel(t *testing.T) {
	_, cancel, done := startServer(t)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeStopsPromptlyWithOpenEventStream(t *testing.T) {
	base, cancel, done := startServer(t)

	resp, err := http.Post(base+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	var snap struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	require.NotEmpty(t, snap.ID)

	stream, err := http.Get(base + "/api/sessions/" + snap.ID + "/events")
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)

	line, err := bufio.NewReader(stream.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: snapshot\n", line)

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Less(t, time.Since(start), 3*time.Second)
	case <-time.After(8 * time.Second):
		t.Fatal("server did not stop while an event stream was open")
	}
}
