package engineopt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpinRangeKeepsPreviousValue(t *testing.T) {
	o := &Option{Name: "Hash", Kind: Spin, Min: 1, Max: 1024, Default: "16"}

	require.NoError(t, o.Set("64"))
	require.Equal(t, 64, o.Int())

	// Out of range: rejected, previous value kept.
	require.Error(t, o.Set("4096"))
	require.Equal(t, 64, o.Int())

	require.Error(t, o.Set("not-a-number"))
	require.Equal(t, 64, o.Int())
}

func TestCheckOption(t *testing.T) {
	o := &Option{Name: "Ponder", Kind: Check, Default: "false"}

	require.False(t, o.Bool())
	require.NoError(t, o.Set("true"))
	require.True(t, o.Bool())
	require.Error(t, o.Set("maybe"))
	require.True(t, o.Bool())
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(
		&Option{Name: "Hash", Kind: Spin, Min: 1, Max: 1024, Default: "16"},
		&Option{Name: "Threads", Kind: Spin, Min: 1, Max: 256, Default: "1"},
	)

	require.NotNil(t, r.Find("hash"), "lookup is case-insensitive")
	require.NoError(t, r.Set("Threads", "8"))
	require.Equal(t, 8, r.Find("Threads").Int())
	require.Error(t, r.Set("NoSuchOption", "1"))
	require.Len(t, r.All(), 2)
}

func TestOnChangeFires(t *testing.T) {
	fired := 0
	o := &Option{Name: "Hash", Kind: Spin, Min: 1, Max: 1024, Default: "16",
		OnChange: func(*Option) { fired++ }}

	require.NoError(t, o.Set("32"))
	require.Error(t, o.Set("0"))
	require.Equal(t, 1, fired, "rejected assignments must not fire OnChange")
}
