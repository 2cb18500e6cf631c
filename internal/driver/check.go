package driver

import (
	"context"
	"fmt"
	"strconv"

	"ownck/internal/diag"
	"ownck/internal/observ"
	"ownck/internal/oplog"
	"ownck/internal/ownership"
	"ownck/internal/source"
	"ownck/internal/trace"
)

// FileResult is the outcome of checking one operation log.
type FileResult struct {
	Path   string
	FileID source.FileID
	// Ops is empty for cached verdicts; OpCount is always set.
	Ops     []ownership.Op
	OpCount int
	// Result holds the checker output; Events only with Options.KeepEvents.
	Result    ownership.Result
	Violation ownership.ViolationKind
	Bag       *diag.Bag
	Timer     *observ.Timer
	Cached    bool
	// Checked is false when syntax errors prevented the check.
	Checked bool
}

// HasErrors reports whether the file has error diagnostics.
func (r *FileResult) HasErrors() bool {
	return r != nil && r.Bag != nil && r.Bag.HasErrors()
}

// CheckFile loads path into fs, parses it and runs the ownership check.
// A file that cannot be read yields an error; everything else is reported
// through FileResult.Bag.
func CheckFile(ctx context.Context, fs *source.FileSet, path string, opts Options) (*FileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timer := observ.NewTimer()
	idx := timer.Begin("load")
	emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusWorking})
	fileID, err := fs.Load(path)
	timer.End(idx, "")
	if err != nil {
		emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err})
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return checkLoaded(ctx, fs, fileID, path, opts, timer), nil
}

// checkLoaded checks an already loaded file. label is the name used for
// progress events, the path the caller asked for.
func checkLoaded(ctx context.Context, fs *source.FileSet, id source.FileID, label string, opts Options, timer *observ.Timer) *FileResult {
	file := fs.Get(id)
	res := &FileResult{
		Path:   file.Path,
		FileID: id,
		Bag:    diag.NewBag(opts.maxDiagnostics()),
		Timer:  timer,
	}
	tracer := trace.FromContext(ctx)
	fileSpan := trace.Begin(tracer, trace.ScopeFile, "file", trace.ParentID(ctx)).WithExtra("path", file.Path)
	defer func() {
		fileSpan.End(verdictOf(res))
	}()
	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})

	key := cacheKey(file, opts)
	if opts.Cache != nil && !opts.KeepEvents {
		var payload DiskPayload
		hit, err := opts.Cache.Get(key, &payload)
		if err != nil {
			trace.Point(tracer, trace.ScopeFile, "cache_error", err.Error(), fileSpan.ID())
		}
		if hit {
			payload.restore(res)
			res.Cached = true
			trace.Point(tracer, trace.ScopeFile, "cache_hit", file.Path, fileSpan.ID())
			finish(res, label, opts)
			return res
		}
	}

	emit(opts.Progress, Event{File: label, Stage: StageParse, Status: StatusWorking})
	idx := timer.Begin("parse")
	parseSpan := trace.Begin(tracer, trace.ScopePass, "parse", fileSpan.ID())
	res.Ops = oplog.Parse(file, reporter)
	res.OpCount = len(res.Ops)
	parseSpan.WithExtra("ops", strconv.Itoa(res.OpCount)).End(oplog.DetectFormat(file.Path).String())
	timer.End(idx, fmt.Sprintf("%d ops", res.OpCount))

	if !res.Bag.HasErrors() {
		emit(opts.Progress, Event{File: label, Stage: StageCheck, Status: StatusWorking})
		idx = timer.Begin("check")
		checkSpan := trace.Begin(tracer, trace.ScopePass, "check", fileSpan.ID())
		copts := opts.checker()
		if tracer.Level().ShouldEmit(trace.ScopeOp) {
			parent := checkSpan.ID()
			copts.OnEvent = func(ev ownership.Event) {
				trace.Point(tracer, trace.ScopeOp, ev.Kind.String(), eventDetail(ev), parent)
			}
		}
		result, err := ownership.Check(res.Ops, copts)
		if err != nil {
			ownership.DiagnoseError(err, reporter)
		} else {
			res.Result = result
			res.Checked = true
			if result.Violation != nil {
				res.Violation = result.Violation.Kind
			}
			ownership.Diagnose(result, res.Ops, reporter)
		}
		if !opts.KeepEvents {
			res.Result.Events = nil
		}
		checkSpan.End(verdictOf(res))
		timer.End(idx, verdictOf(res))
	}

	res.Bag.Sort()
	if opts.Cache != nil {
		if err := opts.Cache.Put(key, newDiskPayload(file, res)); err != nil {
			res.Bag.Add(diag.New(diag.SevWarning, diag.IOCacheError, source.Span{File: id},
				"failed to write verdict cache: "+err.Error()))
		}
	}
	finish(res, label, opts)
	return res
}

func finish(res *FileResult, label string, opts Options) {
	if opts.EnableTimings && res.Timer != nil {
		report := res.Timer.Report()
		appendTimingDiagnostic(res.Bag, timingPayload{
			Kind:    "file",
			Path:    res.Path,
			TotalMS: report.TotalMS,
			Phases:  report.Phases,
		})
	}
	status := StatusDone
	switch {
	case res.HasErrors():
		status = StatusError
	case res.Cached:
		status = StatusCached
	}
	emit(opts.Progress, Event{File: label, Stage: StageCheck, Status: status})
}

func verdictOf(res *FileResult) string {
	switch {
	case !res.Checked:
		return "unchecked"
	case res.Violation != ownership.ViolationNone:
		return res.Violation.String()
	default:
		return "valid"
	}
}

func eventDetail(ev ownership.Event) string {
	detail := ev.Binding
	if ev.Scope != "" {
		detail += " in " + ev.Scope
	}
	if ev.Note != "" {
		detail += " " + ev.Note
	}
	return fmt.Sprintf("#%d %s", ev.Index, detail)
}
