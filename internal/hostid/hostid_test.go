package hostid

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSResolverShouldPreferEnvOverride(t *testing.T) {
	t.Setenv("HOSTNAME", "worker-7")

	h, err := NewOSResolver().Resolve()
	require.NoError(t, err)
	assert.Equal(t, "worker-7", h)
}

func TestOSResolverShouldFallBackToKernelHostname(t *testing.T) {
	t.Setenv("HOSTNAME", "")

	expected, err := os.Hostname()
	require.NoError(t, err)

	h, err := NewOSResolver().Resolve()
	require.NoError(t, err)
	assert.Equal(t, expected, h)
}

func TestFixedShouldAlwaysReturnSameIdentity(t *testing.T) {
	h, err := Fixed("pinned").Resolve()
	require.NoError(t, err)
	assert.Equal(t, "pinned", h)
}
