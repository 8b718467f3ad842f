package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	t.Setenv("TRUSTED_PROXIES", "")
	cfg := Load()
	assert.Empty(t, cfg.TrustedProxies, "no proxy is trusted unless configured")
	require.NoError(t, cfg.Validate())

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7")
	cfg = Load()
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.7"}, cfg.TrustedProxies)
	require.NoError(t, cfg.Validate())

	t.Setenv("TRUSTED_PROXIES", "loadbalancer")
	assert.ErrorContains(t, Load().Validate(), "TRUSTED_PROXIES")
}
