package cfgutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAddresses(t *testing.T) {
	tests := []struct {
		name  string
		addrs []string
		want  []string
		err   bool
	}{{
		name:  "default port added",
		addrs: []string{"localhost"},
		want:  []string{"localhost:18665"},
	}, {
		name:  "explicit port kept",
		addrs: []string{"127.0.0.1:9000"},
		want:  []string{"127.0.0.1:9000"},
	}, {
		name:  "ipv6",
		addrs: []string{"::1", "[::1]:9000"},
		want:  []string{"[::1]:18665", "[::1]:9000"},
	}, {
		name:  "duplicates removed",
		addrs: []string{"localhost", "localhost:18665"},
		want:  []string{"localhost:18665"},
	}, {
		name:  "invalid",
		addrs: []string{"[::1"},
		err:   true,
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			got, err := NormalizeAddresses(test.addrs, "18665")
			if test.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}
}

func TestExplicitString(t *testing.T) {
	s := NewExplicitString("default")
	require.False(t, s.ExplicitlySet())

	v, err := s.MarshalFlag()
	require.NoError(t, err)
	require.Equal(t, "default", v)

	require.NoError(t, s.UnmarshalFlag("default"))
	require.True(t, s.ExplicitlySet())
	require.Equal(t, "default", s.Value)
}

func TestAddressFlag(t *testing.T) {
	a := NewAddressFlag("deployer")
	require.NoError(t, a.UnmarshalFlag("alice"))
	require.Equal(t, "alice", a.Address)

	require.Error(t, a.UnmarshalFlag("Alice"))
	require.Error(t, a.UnmarshalFlag(""))
	require.Equal(t, "alice", a.Address)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	ok, err := FileExists(dir)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = FileExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, ok)
}
