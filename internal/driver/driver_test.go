package driver

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ownck/internal/diag"
	"ownck/internal/ownership"
	"ownck/internal/project"
	"ownck/internal/source"
	"ownck/internal/trace"
)

const (
	validLog  = "enter main\ndeclare a\nborrow a shared as r\nuse r\nend main\n"
	movedLog  = "declare a\nmove a -> b\nuse a\n"
	brokenLog = "declare a\nteleport a\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestCheckFileValid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ok.own", validLog)

	res, err := CheckFile(context.Background(), source.NewFileSet(), path, Options{})
	require.NoError(t, err)
	assert.True(t, res.Checked)
	assert.False(t, res.HasErrors())
	assert.Equal(t, ownership.ViolationNone, res.Violation)
	assert.Equal(t, 5, res.OpCount)
	assert.Nil(t, res.Result.Events, "events are dropped unless requested")
	assert.Len(t, res.Result.Drops, 1)
}

func TestCheckFileViolation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "moved.own", movedLog)
	fs := source.NewFileSet()

	res, err := CheckFile(context.Background(), fs, path, Options{KeepEvents: true})
	require.NoError(t, err)
	assert.True(t, res.HasErrors())
	assert.Equal(t, ownership.UseAfterMove, res.Violation)
	require.Equal(t, []diag.Code{diag.OwnUseAfterMove}, codes(res.Bag))
	assert.NotEmpty(t, res.Result.Events)

	d := res.Bag.Items()[0]
	start, _ := fs.Resolve(d.Primary)
	assert.Equal(t, uint32(3), start.Line)
	require.Len(t, d.Notes, 1)
	noteStart, _ := fs.Resolve(d.Notes[0].Span)
	assert.Equal(t, uint32(2), noteStart.Line)
}

func TestCheckFileSyntaxErrorSkipsCheck(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.own", brokenLog)

	res, err := CheckFile(context.Background(), source.NewFileSet(), path, Options{})
	require.NoError(t, err)
	assert.False(t, res.Checked)
	assert.Equal(t, []diag.Code{diag.SynUnknownOp}, codes(res.Bag))
}

func TestCheckFileMalformedOperation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scope.own", "declare a\nborrow a shared in nowhere\n")

	res, err := CheckFile(context.Background(), source.NewFileSet(), path, Options{})
	require.NoError(t, err)
	assert.False(t, res.Checked)
	assert.Equal(t, []diag.Code{diag.SynScopeNotOpen}, codes(res.Bag))
}

func TestCheckFileMissing(t *testing.T) {
	_, err := CheckFile(context.Background(), source.NewFileSet(), filepath.Join(t.TempDir(), "nope.own"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckFileTimings(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ok.own", validLog)

	res, err := CheckFile(context.Background(), source.NewFileSet(), path, Options{EnableTimings: true})
	require.NoError(t, err)
	require.Equal(t, []diag.Code{diag.ObsTimings}, codes(res.Bag))
	assert.False(t, res.HasErrors())
	assert.Contains(t, res.Bag.Items()[0].Notes[0].Msg, `"phases"`)
}

func TestCheckFileUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "moved.own", movedLog)
	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	opts := Options{Cache: cache}

	first, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	fs := source.NewFileSet()
	second, err := CheckFile(context.Background(), fs, path, opts)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Violation, second.Violation)
	assert.Equal(t, first.OpCount, second.OpCount)
	require.Equal(t, []diag.Code{diag.OwnUseAfterMove}, codes(first.Bag))
	require.Equal(t, codes(first.Bag), codes(second.Bag))
	require.Len(t, first.Bag.Items(), 1)
	require.Len(t, second.Bag.Items(), 1)

	a, b := first.Bag.Items()[0], second.Bag.Items()[0]
	assert.Equal(t, a.Primary.Start, b.Primary.Start)
	assert.Equal(t, a.Primary.End, b.Primary.End)
	assert.Equal(t, second.FileID, b.Primary.File)
	assert.Equal(t, a.Message, b.Message)
	assert.Len(t, b.Notes, len(a.Notes))

	opts.RequireMutable = true
	third, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	assert.False(t, third.Cached, "options are part of the key")

	require.NoError(t, writeFileErr(path, validLog))
	fourth, err := CheckFile(context.Background(), source.NewFileSet(), path, Options{Cache: cache})
	require.NoError(t, err)
	assert.False(t, fourth.Cached, "content is part of the key")
	assert.False(t, fourth.HasErrors())
}

func TestCachedSyntaxErrorStaysUnchecked(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.own", brokenLog)
	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	opts := Options{Cache: cache}

	first, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	require.False(t, first.Checked)

	second, err := CheckFile(context.Background(), source.NewFileSet(), path, opts)
	require.NoError(t, err)
	require.True(t, second.Cached)
	assert.False(t, second.Checked)
	assert.True(t, second.HasErrors())
	assert.Equal(t, "unchecked", verdictOf(second))
}

func writeFileErr(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestDiskCacheDropAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cache, err := OpenDiskCacheAt(dir)
	require.NoError(t, err)

	key := project.DigestOf([]byte("k"))
	require.NoError(t, cache.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion, Ops: 3}))

	var got DiskPayload
	hit, err := cache.Get(key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 3, got.Ops)

	require.NoError(t, cache.DropAll())
	hit, err = cache.Get(key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDiskCacheIgnoresOldSchema(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)
	key := project.DigestOf([]byte("old"))
	require.NoError(t, cache.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion + 1}))

	var got DiskPayload
	hit, err := cache.Get(key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) final() map[string]Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Status)
	for _, ev := range s.events {
		out[ev.File] = ev.Status
	}
	return out
}

func TestCheckDir(t *testing.T) {
	dir := t.TempDir()
	okPath := writeFile(t, dir, "a.own", validLog)
	badPath := writeFile(t, dir, "sub/b.yaml", "ops:\n  - {op: declare, name: a}\n  - {op: use, name: b}\n")
	writeFile(t, dir, ".hidden/c.own", movedLog)
	writeFile(t, dir, "notes.txt", "not a log")

	sink := &recordingSink{}
	res, err := CheckDir(context.Background(), dir, Options{Jobs: 2, Progress: sink})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, okPath, res.Files[0].Path)
	assert.Equal(t, badPath, res.Files[1].Path)

	assert.False(t, res.Files[0].HasErrors())
	assert.Equal(t, ownership.UnknownBinding, res.Files[1].Violation)
	assert.True(t, res.HasErrors())
	assert.Equal(t, []diag.Code{diag.OwnUnknownBinding}, codes(res.Bag()))

	assert.Equal(t, map[string]Status{okPath: StatusDone, badPath: StatusError}, sink.final())
	assert.NotEmpty(t, res.Timer.Report().Phases)
}

func TestCheckDirExclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.own", validLog)
	writeFile(t, dir, "gen/skip.own", movedLog)

	m, err := project.NewMatcher(nil, []string{"gen/**"})
	require.NoError(t, err)
	res, err := CheckDir(context.Background(), dir, Options{Matcher: m})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.False(t, res.HasErrors())
}

func TestCheckDirEmpty(t *testing.T) {
	res, err := CheckDir(context.Background(), t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.False(t, res.HasErrors())
}

func TestCheckDirCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.own", validLog)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CheckDir(ctx, dir, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckFileStreamsEventsAtDebugLevel(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ok.own", validLog)
	ring := trace.NewRingTracer(256, trace.LevelOp)
	ctx := trace.WithTracer(context.Background(), ring)

	_, err := CheckFile(ctx, source.NewFileSet(), path, Options{})
	require.NoError(t, err)

	var ops, passes int
	for _, ev := range ring.Snapshot() {
		switch ev.Scope {
		case trace.ScopeOp:
			ops++
		case trace.ScopePass:
			passes++
		}
	}
	assert.Positive(t, ops)
	assert.Equal(t, 4, passes, "begin and end of parse and check")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := project.Default()
	cfg.Check.RequireMut = true
	cfg.Check.Jobs = 3
	opts := OptionsFromConfig(cfg)
	assert.True(t, opts.RequireMutable)
	assert.Equal(t, 3, opts.Jobs)
	assert.Equal(t, 100, opts.MaxDiagnostics)
}

func TestWatchReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "w.own", validLog)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, WatchOptions{Debounce: 20 * time.Millisecond}, func(paths []string) {
			changed <- paths
		})
	}()

	// watcher registration races with the first write, so keep touching
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case paths := <-changed:
			assert.Equal(t, []string{path}, paths)
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			require.NoError(t, writeFileErr(path, movedLog))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
}
