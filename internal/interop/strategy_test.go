package interop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"host":               StrategyHost,
		"CPU":                StrategyHost,
		" staged ":           StrategyStaged,
		"host-to-host":       StrategyStaged,
		"device":             StrategyDevice,
		"texture-to-texture": StrategyDevice,
	}
	for in, want := range tests {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStrategy("remote")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestParseStrategies(t *testing.T) {
	got, err := ParseStrategies("device, host,device,,staged")
	require.NoError(t, err)
	assert.Equal(t, []Strategy{StrategyDevice, StrategyHost, StrategyStaged}, got)

	_, err = ParseStrategies(" , ")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = ParseStrategies("host,bogus")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestStrategyLabels(t *testing.T) {
	assert.Equal(t, "CPU", StrategyHost.Label())
	assert.Equal(t, "Device host-to-host", StrategyStaged.Label())
	assert.Equal(t, "Device texture-to-texture", StrategyDevice.Label())
	assert.Equal(t, []Strategy{StrategyHost, StrategyStaged, StrategyDevice}, Strategies())
}
