package resources

import (
	"testing"

	"github.com/clusterml/master/internal/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCPU(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"4", 4.0},
		{"2500m", 2.5},
		{" 1 ", 1.0},
		{"4000m", 4.0},
	}
	for _, c := range cases {
		got, err := ParseCPU(c.in)
		require.NoError(t, err)
		assert.InDelta(t, c.want, got, 1e-9, c.in)
	}
}

func TestParseCPUInvalid(t *testing.T) {
	_, err := ParseCPU("not-a-number")
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindInvalidQuantity, apiErr.Kind)
}

func TestParseMemory(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"16Gi", 16384},
		{"512Mi", 512},
		{"2G", 2000},
		{"1024M", 1024},
		{"1048576", 1},
	}
	for _, c := range cases {
		got, err := ParseMemory(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseMemoryInvalid(t *testing.T) {
	_, err := ParseMemory("16Xi")
	require.Error(t, err)

	_, err = ParseMemory("not-a-quantity!!")
	require.Error(t, err)
}

func TestCheckResourcesFitOrderAndBoundary(t *testing.T) {
	// Exactly-equal values fit (strict '>' is the failure condition).
	fits, reason, err := CheckResourcesFit("4", "1024Mi", 1, 4, 1024, 1)
	require.NoError(t, err)
	assert.True(t, fits)
	assert.Equal(t, "ok", reason)

	// CPU fails first.
	fits, reason, err = CheckResourcesFit("8", "1024Mi", 1, 4, 4096, 2)
	require.NoError(t, err)
	assert.False(t, fits)
	assert.Contains(t, reason, "CPU")

	// Memory fails when CPU passes.
	fits, reason, err = CheckResourcesFit("2", "8Gi", 1, 4, 4096, 2)
	require.NoError(t, err)
	assert.False(t, fits)
	assert.Contains(t, reason, "Memory")

	// GPU fails when CPU and memory pass.
	fits, reason, err = CheckResourcesFit("2", "1Gi", 2, 4, 4096, 1)
	require.NoError(t, err)
	assert.False(t, fits)
	assert.Contains(t, reason, "GPU")
}
