package oplog

import (
	"fmt"
	"path/filepath"
	"strings"

	"ownck/internal/diag"
	"ownck/internal/ownership"
	"ownck/internal/source"
)

// Format selects the front end for a file.
type Format uint8

const (
	FormatText Format = iota
	FormatDocument
)

func (f Format) String() string {
	if f == FormatDocument {
		return "document"
	}
	return "text"
}

// DetectFormat picks the format by extension; anything unknown is text.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatDocument
	default:
		return FormatText
	}
}

// Parse dispatches on the file extension.
func Parse(file *source.File, r diag.Reporter) []ownership.Op {
	if DetectFormat(file.Path) == FormatDocument {
		return ParseDocument(file, r)
	}
	return ParseText(file, r)
}

// LoadFile reads path into fs and parses it.
func LoadFile(fs *source.FileSet, path string, r diag.Reporter) (source.FileID, []ownership.Op, error) {
	id, err := fs.Load(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return id, Parse(fs.Get(id), r), nil
}

// FormatOps renders ops in the text syntax, one per line.
func FormatOps(ops []ownership.Op) string {
	var b strings.Builder
	for _, op := range ops {
		b.WriteString(op.String())
		b.WriteByte('\n')
	}
	return b.String()
}
