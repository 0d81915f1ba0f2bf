package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	vars, err := Parse(strings.NewReader("# fixture env\n\nA=1\nexport B='two words' # note\nA=3\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "3", "B": "two words"}, vars)

	_, err = Parse(strings.NewReader("A=1\nBAD!KEY=2\n"))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = ParseFile(filepath.Join(t.TempDir(), "absent.env"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, ".env.base")
	custom := filepath.Join(dir, ".env.custom")
	require.NoError(t, os.WriteFile(base, []byte("# defaults\nLANG=C\nJAZZY_FAKE_DATE=2026-01-01\n\n"), 0o600))
	require.NoError(t, os.WriteFile(custom, []byte("export JAZZY_FAKE_DATE=\"2026-10-18\"\n"), 0o600))

	vars, err := Load(base, custom)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"LANG": "C", "JAZZY_FAKE_DATE": "2026-10-18"}, vars)

	_, err = Load(base, filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)

	vars, err = Load()
	require.NoError(t, err)
	assert.Empty(t, vars)
}

func TestOverlay(t *testing.T) {
	base := map[string]string{"A": "1", "B": "2"}
	overlay := map[string]string{"B": "3"}

	merged := Overlay(base, overlay)
	assert.Equal(t, map[string]string{"A": "1", "B": "3"}, merged)
	assert.Equal(t, "2", base["B"])
	assert.Nil(t, Overlay(nil, nil))
}
