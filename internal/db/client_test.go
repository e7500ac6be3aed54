package db

import (
	"context"
	"testing"

	"auction-engine/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNew_SQLite(t *testing.T) {
	client, err := New(context.Background(), config.StoreConfig{
		Driver: config.StoreSQLite,
		DSN:    "file::memory:?cache=shared",
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, client.Close()) }()

	require.NotNil(t, client.DB())
	require.NoError(t, client.Ping(context.Background()))
}

func TestNew_RejectsUnsupportedDrivers(t *testing.T) {
	_, err := New(context.Background(), config.StoreConfig{Driver: config.StoreMemory})
	require.Error(t, err)

	_, err = New(context.Background(), config.StoreConfig{Driver: config.StorePostgres})
	require.Error(t, err)
}
