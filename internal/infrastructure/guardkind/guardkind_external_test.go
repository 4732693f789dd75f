package guardkind_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GSejas/health-watch-sub002/internal/infrastructure/guardkind"
)

func TestInterfaceUp_MissingParam(t *testing.T) {
	fn := guardkind.InterfaceUp(map[string]string{})
	_, err := fn(context.Background())
	require.Error(t, err)
}

func TestInterfaceUp_UnknownInterface(t *testing.T) {
	fn := guardkind.InterfaceUp(map[string]string{"interface": "nonexistent0"})
	ok, err := fn(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDNSReachable_MissingParam(t *testing.T) {
	fn := guardkind.DNSReachable(map[string]string{})
	_, err := fn(context.Background())
	require.Error(t, err)
}

func TestDNSReachable_Loopback(t *testing.T) {
	fn := guardkind.DNSReachable(map[string]string{"host": "localhost"})
	ok, err := fn(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
