package driver

import (
	"context"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"ownck/internal/diag"
	"ownck/internal/observ"
	"ownck/internal/project"
	"ownck/internal/source"
	"ownck/internal/trace"
)

// DirResult collects per-file results of a directory check, in path order.
type DirResult struct {
	Root    string
	FileSet *source.FileSet
	Files   []*FileResult
	// Timer aggregates the phases of all files.
	Timer *observ.Timer
}

// HasErrors reports whether any file has error diagnostics.
func (r *DirResult) HasErrors() bool {
	for _, f := range r.Files {
		if f.HasErrors() {
			return true
		}
	}
	return false
}

// Bag merges all file diagnostics, sorted.
func (r *DirResult) Bag() *diag.Bag {
	total := 0
	for _, f := range r.Files {
		total += f.Bag.Len()
	}
	bag := diag.NewBag(max(total, 1))
	for _, f := range r.Files {
		bag.Merge(f.Bag)
	}
	bag.Sort()
	bag.Dedup()
	return bag
}

// ListFiles returns the logs under dir selected by opts.Matcher.
func ListFiles(dir string, opts Options) ([]string, error) {
	return project.ListFiles(dir, opts.Matcher)
}

// CheckDir checks every selected log under dir in parallel. Files are loaded
// up front so that the FileSet is only read by the workers.
func CheckDir(ctx context.Context, dir string, opts Options) (*DirResult, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "check_dir", trace.ParentID(ctx)).WithExtra("dir", dir)
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)

	files, err := ListFiles(dir, opts)
	if err != nil {
		return nil, err
	}
	fileSet := source.NewFileSetWithBase(dir)
	out := &DirResult{
		Root:    dir,
		FileSet: fileSet,
		Files:   make([]*FileResult, len(files)),
		Timer:   observ.NewTimer(),
	}
	if len(files) == 0 {
		return out, nil
	}

	for _, path := range files {
		emit(opts.Progress, Event{File: path, Status: StatusQueued})
	}

	fileIDs := make([]source.FileID, len(files))
	timers := make([]*observ.Timer, len(files))
	loadErrors := make(map[int]error)
	for i, path := range files {
		timers[i] = observ.NewTimer()
		idx := timers[i].Begin("load")
		id, err := fileSet.Load(path)
		timers[i].End(idx, "")
		if err != nil {
			// пустой виртуальный файл, чтобы диагностике было куда указывать
			id = fileSet.Add(path, nil, source.FileVirtual)
			loadErrors[i] = err
		}
		fileIDs[i] = id
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if loadErr, failed := loadErrors[i]; failed {
				res := &FileResult{
					Path:   path,
					FileID: fileIDs[i],
					Bag:    diag.NewBag(opts.maxDiagnostics()),
					Timer:  timers[i],
				}
				res.Bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{File: fileIDs[i]},
					"failed to load file: "+loadErr.Error()))
				out.Files[i] = res
				emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: loadErr})
				return nil
			}
			// индекс i уникален для горутины, мьютекс не нужен
			out.Files[i] = checkLoaded(gctx, fileSet, fileIDs[i], path, opts, timers[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	for _, res := range out.Files {
		out.Timer.Merge(res.Timer)
	}
	span.WithExtra("files", strconv.Itoa(len(files)))
	return out, nil
}
