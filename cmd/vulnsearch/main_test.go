// ABOUTME: Tests for service construction and startup.
// ABOUTME: Tests refusing to start without data, serving tools once loaded, and graceful shutdown.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jfeddern/VulnSearch/internal/config"
	"github.com/jfeddern/VulnSearch/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func writeDataFile(t *testing.T) string {
	t.Helper()

	content := strings.Join([]string{
		"id,name,description,vendor,software,version,severity",
		"BDU:2024-00001,Nginx vuln 1,Buffer overflow,nginx Inc,nginx,1.5.6,Критический",
		"BDU:2024-00002,Nginx vuln 2,XSS attack,nginx Inc,nginx,2.0.0,Средний",
	}, "\n")

	path := filepath.Join(t.TempDir(), "vullist.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func freePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, newLogger("debug").GetLevel())
	assert.Equal(t, logrus.WarnLevel, newLogger("warn").GetLevel())
	assert.Equal(t, logrus.InfoLevel, newLogger("bogus").GetLevel())

	_, ok := newLogger("info").Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

// The record store is process-wide, so the subtests run in a fixed order:
// a failed load must leave nothing behind for the later successful one.
func TestService(t *testing.T) {
	dataPath := writeDataFile(t)

	t.Run("refuses to start without data", func(t *testing.T) {
		cfg := config.Default()
		cfg.DataPath = filepath.Join(t.TempDir(), "nonexistent.xlsx")

		service, err := NewService(cfg, testLogger())
		require.Error(t, err)
		assert.Nil(t, service)

		var notFound *store.DataSourceNotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Contains(t, err.Error(), cfg.DataPath)
	})

	t.Run("serves tools once loaded", func(t *testing.T) {
		cfg := config.Default()
		cfg.DataPath = dataPath

		service, err := NewService(cfg, testLogger())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/search?query=NGINX+1.5.6", nil)
		rr := httptest.NewRecorder()
		service.handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"count":1`)
		assert.Contains(t, rr.Body.String(), "BDU:2024-00001")

		req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rr = httptest.NewRecorder()
		service.handler.ServeHTTP(rr, req)
		assert.Contains(t, rr.Body.String(), "vulnsearch_dataset_records 2")
	})

	t.Run("start and graceful shutdown", func(t *testing.T) {
		cfg := config.Default()
		cfg.DataPath = dataPath
		cfg.Host = "127.0.0.1"
		cfg.Port = freePort(t)

		service, err := NewService(cfg, testLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- service.Start(ctx)
		}()

		url := fmt.Sprintf("http://%s/health", cfg.Addr())
		require.Eventually(t, func() bool {
			resp, err := http.Get(url)
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 5*time.Second, 50*time.Millisecond)

		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(15 * time.Second):
			t.Fatal("server did not shut down")
		}
	})
}
