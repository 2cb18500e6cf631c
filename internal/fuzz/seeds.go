package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10 // 64 KiB

var builtinTextSeeds = []string{
	"declare v\nborrow v exclusive\nborrow v shared\n",
	"declare v\nmove v -> w\nuse v\n",
	"enter outer\nenter inner\ndeclare v\nborrow v & as r\nmove r -> keep in outer\nend inner\nuse keep\n",
	"let mut x\nborrow x &mut as m\nrelease-borrow m\nscope-end\n",
	"# comment only\n// another\n",
	"move a->b\nend\nend\n",
}

var builtinDocSeeds = []string{
	"ops:\n  - {op: declare, name: v}\n  - {op: borrow, name: v, kind: exclusive}\n",
	`{"ops": [{"op": "declare", "name": "v"}, {"op": "use", "name": "v"}]}`,
	"- {op: enter, name: s}\n- op: end\n",
}

func addTextSeeds(f *testing.F) {
	for _, s := range builtinTextSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f, ".own")
}

func addDocSeeds(f *testing.F) {
	for _, s := range builtinDocSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f, ".yaml")
}

func addTestdataSeeds(f *testing.F, ext string) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ext {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) > maxSeedBytes {
		src = src[:maxSeedBytes]
	}
	return append([]byte(nil), src...)
}
