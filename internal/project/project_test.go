package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), "[check]\nrequire_mut = true\njobs = 2\n")
	nested := filepath.Join(root, "a", "b")
	writeFile(t, filepath.Join(nested, "main.own"), "declare x\n")

	m, ok, err := Discover(filepath.Join(nested, "main.own"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, root, m.Root)
	assert.True(t, m.Config.Check.RequireMut)
	assert.Equal(t, 2, m.Config.Check.Jobs)
	// untouched keys keep their defaults
	assert.Equal(t, 100, m.Config.Check.MaxDiagnostics)
	assert.Equal(t, DefaultInclude, m.Config.Check.Include)
	assert.True(t, m.Config.Cache.Enabled)
}

func TestDiscoverWithoutManifest(t *testing.T) {
	root := t.TempDir()
	m, ok, err := Discover(root)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Default(), m.Config)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	writeFile(t, path, "[check]\nrequire_mutable = true\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check.require_mutable")
}

func TestLoadValidates(t *testing.T) {
	cases := map[string]string{
		"negative jobs": "[check]\njobs = -1\n",
		"bad level":     "[trace]\nlevel = \"loud\"\n",
		"bad glob":      "[check]\ninclude = [\"[\"]\n",
		"empty include": "[check]\ninclude = []\n",
		"bad toml":      "[check\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDefaultManifestLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestName)
	writeFile(t, path, DefaultManifest)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Check.Include, cfg.Check.Include)
	assert.Empty(t, cfg.Check.Exclude)
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"main.own",
		"logs/a.yaml",
		"logs/skip/b.own",
		"logs/notes.txt",
		".git/c.own",
	} {
		writeFile(t, filepath.Join(root, rel), "")
	}
	m, err := NewMatcher(nil, []string{"logs/skip/**"})
	require.NoError(t, err)

	files, err := ListFiles(root, m)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "logs", "a.yaml"),
		filepath.Join(root, "main.own"),
	}, files)
}

func TestNewMatcherRejectsBadGlob(t *testing.T) {
	_, err := NewMatcher([]string{"a/[b"}, nil)
	assert.Error(t, err)
}

func TestCombineSeparatesParts(t *testing.T) {
	d := DigestOf([]byte("declare x\n"))
	assert.NotEqual(t, Combine(d, "ab", "c"), Combine(d, "a", "bc"))
	assert.Equal(t, Combine(d, "x"), Combine(d, "x"))
}
