package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Tracer receives trace events. Emit must be safe for concurrent use since
// directory checks run files in parallel.
type Tracer interface {
	Emit(ev *Event)
	Level() Level
	// Close releases the output; a stderr sink stays open.
	Close() error
}

// Sink says where events go: written out, kept in memory, or both.
type Sink uint8

const (
	SinkStream Sink = iota + 1
	SinkRing
	SinkBoth
)

var sinkNames = map[string]Sink{
	"":       SinkStream,
	"stream": SinkStream,
	"ring":   SinkRing,
	"both":   SinkBoth,
}

// ParseSink reads the --trace-mode value.
func ParseSink(s string) (Sink, error) {
	if sink, ok := sinkNames[strings.ToLower(s)]; ok {
		return sink, nil
	}
	return SinkStream, fmt.Errorf("unknown trace mode %q (want stream, ring or both)", s)
}

// Config is assembled from the --trace flags and the [trace] manifest section.
type Config struct {
	Level Level
	Sink  Sink
	// OutputPath is a file, or "" and "-" for stderr. A .ndjson or .jsonl
	// suffix switches the stream to NDJSON.
	OutputPath string
	RingSize   int
}

const defaultRingSize = 4096

// New builds the tracer described by cfg. LevelOff always yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	switch cfg.Sink {
	case SinkRing:
		return NewRingTracer(cfg.RingSize, cfg.Level), nil
	case SinkStream, SinkBoth:
	default:
		return nil, fmt.Errorf("unknown trace sink %d", cfg.Sink)
	}

	w, err := openSink(cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	stream := NewStreamTracer(w, cfg.Level, formatFor(cfg.OutputPath))
	if cfg.Sink == SinkStream {
		return stream, nil
	}
	return NewMultiTracer(cfg.Level, stream, NewRingTracer(cfg.RingSize, cfg.Level)), nil
}

func formatFor(path string) Format {
	if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".jsonl") {
		return FormatNDJSON
	}
	return FormatText
}

func openSink(path string) (io.Writer, error) {
	if path == "" || path == "-" {
		// a bare writer so Close leaves stderr alone
		return struct{ io.Writer }{os.Stderr}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}
