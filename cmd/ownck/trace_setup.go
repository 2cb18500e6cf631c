package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ownck/internal/project"
	"ownck/internal/trace"
)

// activeTracer is kept for dumpTraceOnPanic.
var activeTracer trace.Tracer = trace.Nop

// setupTracing inspects trace-related flags and initializes the tracer.
// Flags win over the [trace] section of the manifest. It returns a cleanup
// function and an error if initialization fails.
func setupTracing(cmd *cobra.Command, cfg project.TraceConfig) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	if !root.PersistentFlags().Changed("trace-level") {
		levelStr = cfg.Level
	}
	if !root.PersistentFlags().Changed("trace") && traceOutput == "" {
		traceOutput = cfg.Output
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace alone means phase
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	sink, err := trace.ParseSink(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Sink:       sink,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	cleanup := func() {
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
		activeTracer = trace.Nop
	}
	return cleanup, nil
}

// dumpTraceOnPanic writes the ring buffer, if any, to stderr and re-panics.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if ring := ringOf(activeTracer); ring != nil {
		fmt.Fprintln(os.Stderr, "--- trace ring dump ---")
		_ = ring.Dump(os.Stderr, trace.FormatText)
	}
	panic(r)
}

func ringOf(t trace.Tracer) *trace.RingTracer {
	switch tt := t.(type) {
	case *trace.RingTracer:
		return tt
	case *trace.MultiTracer:
		return tt.Ring()
	}
	return nil
}
