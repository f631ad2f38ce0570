package caseportsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseport/internal/config"
	"caseport/internal/db"
	"caseport/internal/engine"
	"caseport/internal/migrate"
	"caseport/internal/server"
	caseportsdk "caseport/sdk/go"
)

func newClient(t *testing.T) *caseportsdk.Client {
	t.Helper()
	conn, err := db.Open(db.Config{Memory: true})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	handler, err := server.New(server.Config{Engine: engine.New(conn, config.Default())})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return caseportsdk.New(srv.URL)
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	t.Run("Should reach the health endpoint", func(t *testing.T) {
		require.NoError(t, c.Health(ctx))
	})

	t.Run("Should convert a legacy document", func(t *testing.T) {
		cfg, err := c.Convert(ctx, "time: 500ms\nmemory: 1\ncases: 2\n")
		require.NoError(t, err)
		assert.Equal(t, "classic", cfg.Judge.JudgeType)
		assert.Equal(t, uint32(500), cfg.ResourceLimits.Time)
		assert.Equal(t, uint32(1048576), cfg.ResourceLimits.Memory)
		assert.Equal(t, "simple", cfg.Task.TaskType)
		assert.Len(t, cfg.Task.Cases, 2)
	})

	t.Run("Should expose the error kind", func(t *testing.T) {
		_, err := c.Convert(ctx, "memory: 100xx\n")
		var apiErr *caseportsdk.APIError
		require.True(t, errors.As(err, &apiErr), "got %v", err)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
		assert.Equal(t, "unrecognized_unit", apiErr.Kind())
	})

	t.Run("Should list an empty journal", func(t *testing.T) {
		runs, err := c.Runs(ctx, "failed", 10)
		require.NoError(t, err)
		assert.Empty(t, runs)

		_, err = c.Run(ctx, "missing")
		var apiErr *caseportsdk.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "not_found", apiErr.Code)
	})
}
