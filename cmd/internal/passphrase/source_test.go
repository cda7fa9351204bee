package passphrase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileWinsOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pass")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	t.Setenv("CONTRACTUS_TEST_PASS", "from-env")

	value, err := NewSource("CONTRACTUS_TEST_PASS", path).Get()
	require.NoError(t, err)
	require.Equal(t, "from-file", value)
}

func TestEnvUsedVerbatim(t *testing.T) {
	t.Setenv("CONTRACTUS_TEST_PASS", " spaced ")
	src := NewSource("CONTRACTUS_TEST_PASS", "")
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, " spaced ", value)

	t.Setenv("CONTRACTUS_TEST_PASS", "changed")
	cached, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, " spaced ", cached)
}

func TestEmptyValuesRejected(t *testing.T) {
	t.Setenv("CONTRACTUS_TEST_PASS", "  ")
	_, err := NewSource("CONTRACTUS_TEST_PASS", "").Get()
	require.ErrorContains(t, err, "set but empty")

	path := filepath.Join(t.TempDir(), "pass")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))
	_, err = NewSource("", path).Get()
	require.ErrorContains(t, err, "is empty")
}

func TestNoTerminal(t *testing.T) {
	src := NewSource("CONTRACTUS_TEST_UNSET_PASS", "")
	src.stdin = nil
	_, err := src.Get()
	require.ErrorContains(t, err, "CONTRACTUS_TEST_UNSET_PASS")
}
