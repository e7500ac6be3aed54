package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvJWTSecret, "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.App.Port)
	require.Equal(t, ":8080", cfg.App.Addr())
	require.Equal(t, StoreMemory, cfg.Store.Driver)
	require.Equal(t, time.Second, cfg.Sweeper.Interval)
	require.Equal(t, 4, cfg.Sweeper.Concurrency)
	require.Equal(t, 5*time.Second, cfg.Settlement.CollaboratorTimeout)
	require.Equal(t, BidPolicyOpen, cfg.Bidding.Policy)
	require.Equal(t, "auction-engine", cfg.JWT.Issuer)
	require.False(t, cfg.Redis.Enabled())
	require.True(t, cfg.App.IsDev())
}

func TestLoad_Overrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvStoreDriver, StoreSQLite)
	t.Setenv(EnvStoreDSN, "file:auctions.db")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvSweepInterval, "250ms")
	t.Setenv(EnvSweepConcurrency, "1")
	t.Setenv(EnvBidPolicy, BidPolicyAscending)
	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvJWTSecret, strings.Repeat("s", MinProdSecretLen))
	t.Setenv(EnvJWTIssuer, "auctions.example")
	t.Setenv(EnvCollaboratorTTL, "750ms")
	t.Setenv(EnvGatewaySendBuffer, "8")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.App.Addr())
	require.Equal(t, StoreSQLite, cfg.Store.Driver)
	require.Equal(t, 250*time.Millisecond, cfg.Sweeper.Interval)
	require.Equal(t, 1, cfg.Sweeper.Concurrency)
	require.Equal(t, BidPolicyAscending, cfg.Bidding.Policy)
	require.True(t, cfg.Redis.Enabled())
	require.True(t, cfg.App.IsProd())
	require.False(t, cfg.App.IsDev())
	require.Equal(t, "auctions.example", cfg.JWT.Issuer)
	require.Equal(t, 750*time.Millisecond, cfg.Settlement.CollaboratorTimeout)
	require.Equal(t, 8, cfg.Gateway.SendBuffer)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown_store", env: map[string]string{EnvStoreDriver: "mongo"}},
		{name: "postgres_without_dsn", env: map[string]string{EnvStoreDriver: StorePostgres}},
		{name: "unknown_policy", env: map[string]string{EnvBidPolicy: "dutch"}},
		{name: "zero_concurrency", env: map[string]string{EnvSweepConcurrency: "0"}},
		{name: "bad_interval", env: map[string]string{EnvSweepInterval: "soon"}},
		{name: "zero_collaborator_timeout", env: map[string]string{EnvCollaboratorTTL: "0s"}},
		{name: "zero_send_buffer", env: map[string]string{EnvGatewaySendBuffer: "0"}},
		{name: "blank_issuer", env: map[string]string{EnvJWTIssuer: " "}},
		{name: "short_secret_in_prod", env: map[string]string{EnvAppEnv: AppEnvProd}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setMinimalEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	require.NoError(t, os.Unsetenv(EnvJWTSecret))

	_, err := Load()
	require.Error(t, err)
}
