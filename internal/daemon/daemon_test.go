package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxent-labs/gisstore/internal/domain"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("GISSTORE_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Store.Dir = filepath.Join(t.TempDir(), "models")
	return cfg
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1)) // debug
	assert.True(t, logger.Core().Enabled(1))   // warn

	logger, err = NewLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = NewLogger("loud", false)
	assert.Error(t, err)
}

func TestNewWithConfig(t *testing.T) {
	d, err := NewWithConfig(testConfig(t), nil)
	require.NoError(t, err)
	assert.NotNil(t, d.Writer)
	assert.NotNil(t, d.Verifier)
	assert.NotNil(t, d.Health)
	assert.NotNil(t, d.Server)
}

func TestNewWithConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		is     error
	}{
		{"text backend", func(c *Config) { c.Store.Backend = "text" }, domain.ErrUnsupportedOperation},
		{"unknown backend", func(c *Config) { c.Store.Backend = "oracle" }, nil},
		{"bad synchronous", func(c *Config) { c.Store.Synchronous = "SOMETIMES" }, nil},
		{"empty dir", func(c *Config) { c.Store.Dir = "" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			_, err := NewWithConfig(cfg, nil)
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "error = %v", err)
			}
		})
	}
}

func TestServeListener(t *testing.T) {
	d, err := NewWithConfig(testConfig(t), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.ServeListener(ctx, ln) }()

	doc := `{"outcomes": ["A", "B"], "features": {"feat1": {"A": 0.5, "B": -0.3}}}`
	req, err := http.NewRequest(http.MethodPut, base+"/v1/models/ner", strings.NewReader(doc))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var result domain.PersistResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.Rows.Parameters)
	assert.FileExists(t, filepath.Join(d.Config.Store.Dir, "ner.db"))

	health, err := http.Get(base + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("ServeListener() did not return after cancel")
	}
}

func TestClose_StopsServe(t *testing.T) {
	d, err := NewWithConfig(testConfig(t), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	done := make(chan error, 1)
	go func() { done <- d.ServeListener(context.Background(), ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	<-closed

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("ServeListener() did not return after Close")
	}
}

func TestClose_BeforeServe(t *testing.T) {
	d, err := NewWithConfig(testConfig(t), nil)
	require.NoError(t, err)
	d.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.ServeListener(context.Background(), ln) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("ServeListener() kept running after Close")
	}
}

func TestAddr(t *testing.T) {
	d := &Daemon{Config: DefaultConfig()}
	assert.Equal(t, "127.0.0.1:7480", d.Addr())
}
