package driver

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ownck/internal/source"
)

// expectation reads the "# expect: <kind>" header of a sample log.
func expectation(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if rest, ok := strings.CutPrefix(sc.Text(), "# expect:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("%s has no expect header", path)
	return ""
}

func TestSampleLogs(t *testing.T) {
	root := filepath.Join("..", "..", "testdata")
	files, err := ListFiles(root, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		rel, _ := filepath.Rel(root, path)
		t.Run(filepath.ToSlash(rel), func(t *testing.T) {
			want := expectation(t, path)
			res, err := CheckFile(context.Background(), source.NewFileSet(), path, Options{})
			require.NoError(t, err)
			require.True(t, res.Checked, "diagnostics: %v", codes(res.Bag))
			if want == "valid" {
				assert.False(t, res.HasErrors(), "diagnostics: %v", codes(res.Bag))
				return
			}
			assert.Equal(t, want, res.Violation.String())
			assert.True(t, res.HasErrors())
		})
	}
}
