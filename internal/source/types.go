package source

// FileID indexes a File inside its FileSet in insertion order.
type FileID uint32

// FileFlags records how a file's bytes were obtained and normalized.
type FileFlags uint8

const (
	FileVirtual        FileFlags = 1 << iota // in-memory log or a placeholder for an unreadable one
	FileHadBOM                               // UTF-8 BOM stripped on load
	FileNormalizedCRLF                       // \r\n rewritten to \n on load
)

// File is one operation log. Content is normalized; spans index into it.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	// LineIdx holds the offset of every '\n'.
	LineIdx []uint32
	// Hash is the SHA-256 of Content, the verdict cache key.
	Hash  [32]byte
	Flags FileFlags
}

// LineCol is a 1-based position.
type LineCol struct {
	Line uint32
	Col  uint32
}
