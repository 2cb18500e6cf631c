package driver

import (
	"ownck/internal/ownership"
	"ownck/internal/project"
)

// Options controls a check run.
type Options struct {
	RequireMutable bool
	MaxDiagnostics int
	// Jobs limits parallel file checks; 0 means GOMAXPROCS.
	Jobs          int
	EnableTimings bool
	// KeepEvents keeps the checker event log in FileResult. Cached verdicts
	// carry no events, so callers that need them should not set Cache.
	KeepEvents bool
	Cache      *DiskCache
	Matcher    *project.Matcher
	Progress   ProgressSink
}

// OptionsFromConfig maps an ownck.toml configuration onto Options.
// Command-line flags are applied afterwards by the caller.
func OptionsFromConfig(cfg project.Config) Options {
	return Options{
		RequireMutable: cfg.Check.RequireMut,
		MaxDiagnostics: cfg.Check.MaxDiagnostics,
		Jobs:           cfg.Check.Jobs,
	}
}

func (o Options) checker() ownership.Options {
	return ownership.Options{RequireMutable: o.RequireMutable}
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return 100
	}
	return o.MaxDiagnostics
}
