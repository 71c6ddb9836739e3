package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/archive"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/executor"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/fetch"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/index"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/integrity"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/operr"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/sandbox"
	"github.com/HackerOS-Linux-System/Hacker-Package-Manager/pkg/state"
)

// testEnv is a fully isolated engine over a temp root with real
// extraction (tar) and file:// artifact fetches. The sandbox helper is
// replaced by /bin/true so install commands always succeed.
type testEnv struct {
	t      *testing.T
	engine *Engine
	out    *bytes.Buffer
	root   string

	doc *index.Document
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	paths := Paths{
		StoreRoot:   filepath.Join(root, "store"),
		CacheRoot:   filepath.Join(root, "cache"),
		IndexCache:  filepath.Join(root, "index.yaml"),
		Journal:     filepath.Join(root, "state.yaml"),
		LockFile:    filepath.Join(root, "lock"),
		HistoryDB:   filepath.Join(root, "history.db"),
		BinDir:      filepath.Join(root, "bin"),
		VersionFile: filepath.Join(root, "version"),
		EnginePath:  filepath.Join(root, "hpm"),
		HelperPath:  filepath.Join(root, "hpm-sandbox"),
	}

	out := &bytes.Buffer{}
	e := New(paths)
	e.Out = out
	e.Sandbox = &sandbox.Sandbox{Helper: "true", Runner: executor.System{}}
	e.Fetcher = &fetch.Fetcher{Runner: executor.System{}}

	return &testEnv{
		t:      t,
		engine: e,
		out:    out,
		root:   root,
		doc:    &index.Document{Packages: map[string]*index.Entry{}},
	}
}

// addArtifact builds an archive for pkg/ver with the given dependencies
// and binaries and registers it in the test index.
func (env *testEnv) addArtifact(pkg, ver string, deps map[string]string, bins []string) {
	env.t.Helper()

	src := env.t.TempDir()
	manifestText := "[metadata]\nname = " + pkg + "\nversion = " + ver + "\nauthors = test\nlicense = MIT\n"
	if len(bins) > 0 {
		manifestText += "\n[metadata.bins]\n"
		for _, b := range bins {
			manifestText += b + " =\n"
		}
	}
	manifestText += "\n[sandbox]\nnetwork = false\n"
	if err := os.WriteFile(filepath.Join(src, "info.hk"), []byte(manifestText), 0o644); err != nil {
		env.t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "payload.bin"), []byte(pkg+"-"+ver), 0o644); err != nil {
		env.t.Fatal(err)
	}

	archivePath := filepath.Join(env.root, "artifacts", archive.Name(pkg, ver))
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		env.t.Fatal(err)
	}
	if err := archive.Create(src, archivePath); err != nil {
		env.t.Fatal(err)
	}
	digest, err := integrity.FileSHA256(archivePath)
	if err != nil {
		env.t.Fatal(err)
	}

	entry := env.doc.Packages[pkg]
	if entry == nil {
		entry = &index.Entry{Author: "test", License: "MIT", Description: pkg + " test package"}
		env.doc.Packages[pkg] = entry
	}
	entry.Versions = append(entry.Versions, &index.Record{
		Version:      ver,
		URL:          "file://" + archivePath,
		SHA256:       digest,
		Dependencies: deps,
	})
	env.writeIndex()
}

func (env *testEnv) writeIndex() {
	env.t.Helper()
	data, err := yaml.Marshal(struct {
		Packages map[string]*index.Entry `yaml:"packages"`
	}{env.doc.Packages})
	if err != nil {
		env.t.Fatal(err)
	}
	if err := os.WriteFile(env.engine.Paths.IndexCache, data, 0o644); err != nil {
		env.t.Fatal(err)
	}
}

func (env *testEnv) journal() *state.Journal {
	env.t.Helper()
	j, err := state.Load(env.engine.Paths.Journal)
	if err != nil {
		env.t.Fatalf("loading journal: %v", err)
	}
	return j
}

func (env *testEnv) install(specs ...string) error {
	env.t.Helper()
	parsed := make([]Spec, len(specs))
	for i, s := range specs {
		spec, err := ParseSpec(s)
		if err != nil {
			env.t.Fatal(err)
		}
		parsed[i] = spec
	}
	return env.engine.Install(context.Background(), parsed)
}

func TestFreshInstallNoDeps(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, []string{"foo"})

	if err := env.install("foo"); err != nil {
		t.Fatalf("install: %v", err)
	}

	// Store directory, current link, launcher, journal.
	if _, err := os.Stat(env.engine.Paths.VersionDir("foo", "1.0")); err != nil {
		t.Errorf("version dir missing: %v", err)
	}
	if target := env.engine.currentVersion("foo"); target != "1.0" {
		t.Errorf("current -> %q, want 1.0", target)
	}
	launcher := env.engine.Paths.LauncherPath("foo")
	fi, err := os.Stat(launcher)
	if err != nil {
		t.Fatalf("launcher missing: %v", err)
	}
	if fi.Mode()&0o111 == 0 {
		t.Error("launcher not executable")
	}
	body, _ := os.ReadFile(launcher)
	if !strings.Contains(string(body), "hpm run foo foo") {
		t.Errorf("launcher body = %q", body)
	}

	j := env.journal()
	entry, ok := j.Entry("foo", "1.0")
	if !ok {
		t.Fatal("journal entry missing")
	}
	if entry.Pin {
		t.Error("fresh install must not be pinned")
	}
	if entry.Digest == "" || entry.Digest == state.NoDigest {
		t.Errorf("digest = %q", entry.Digest)
	}

	// Second invocation is a no-op and says so.
	env.out.Reset()
	if err := env.install("foo"); err != nil {
		t.Fatalf("reinstall: %v", err)
	}
	if !strings.Contains(env.out.String(), "already installed") {
		t.Errorf("output = %q, want already installed", env.out.String())
	}
}

func TestInstallWithDependencyOrder(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("lib", "1.0", nil, nil)
	env.addArtifact("app", "1.0", map[string]string{"lib": ">=1.0"}, nil)

	if err := env.install("app"); err != nil {
		t.Fatalf("install: %v", err)
	}
	j := env.journal()
	if _, ok := j.Entry("lib", "1.0"); !ok {
		t.Error("dependency not installed")
	}
	if _, ok := j.Entry("app", "1.0"); !ok {
		t.Error("root not installed")
	}
}

func TestInstallVersionConflictLeavesJournalUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("c", "1.0", nil, nil)
	env.addArtifact("c", "1.1", nil, nil)
	env.addArtifact("a", "1.0", map[string]string{"c": ">=1.0"}, nil)
	env.addArtifact("b", "1.0", map[string]string{"c": "=1.0"}, nil)

	err := env.install("a", "b")
	if !operr.IsKind(err, operr.KindVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if env.journal().Len() != 0 {
		t.Error("journal changed on failed resolution")
	}
}

func TestInstallChecksumMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, nil)
	// Advertise a digest the archive does not hash to.
	env.doc.Packages["foo"].Versions[0].SHA256 = strings.Repeat("0", 64)
	env.writeIndex()

	err := env.install("foo")
	if !operr.IsKind(err, operr.KindChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	// The corrupt cached archive is deleted, nothing reaches the store
	// or journal.
	if _, statErr := os.Stat(env.engine.Paths.CachedArchive("foo", "1.0")); !os.IsNotExist(statErr) {
		t.Error("corrupt cached archive not deleted")
	}
	if _, statErr := os.Stat(env.engine.Paths.VersionDir("foo", "1.0")); !os.IsNotExist(statErr) {
		t.Error("store changed on checksum mismatch")
	}
	if env.journal().Len() != 0 {
		t.Error("journal changed on checksum mismatch")
	}
}

func TestInstallRecoversFromStaleTmp(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, nil)

	// Simulate a crash between extraction and publish.
	stale := env.engine.Paths.TmpVersionDir("foo", "1.0")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stale, "leftover"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := env.install("foo"); err != nil {
		t.Fatalf("install over stale tmp: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale .tmp not cleared")
	}
	if _, ok := env.journal().Entry("foo", "1.0"); !ok {
		t.Error("install did not complete")
	}
}

func TestRemoveRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, []string{"foo"})

	if err := env.install("foo=1.0"); err != nil {
		t.Fatal(err)
	}
	if err := env.engine.Remove(context.Background(), "foo", "1.0"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// Journal and store match their pre-install state; the cache may
	// keep the archive.
	if env.journal().Len() != 0 {
		t.Error("journal not empty after remove")
	}
	if _, err := os.Stat(env.engine.Paths.PackageDir("foo")); !os.IsNotExist(err) {
		t.Error("package dir remains")
	}
	if _, err := os.Stat(env.engine.Paths.LauncherPath("foo")); !os.IsNotExist(err) {
		t.Error("launcher remains")
	}
	if _, err := os.Stat(env.engine.Paths.CurrentLink("foo")); !os.IsNotExist(err) {
		t.Error("current link remains")
	}
}

func TestRemoveNotInstalled(t *testing.T) {
	env := newTestEnv(t)
	err := env.engine.Remove(context.Background(), "ghost", "")
	if !operr.IsKind(err, operr.KindPackageNotInstalled) {
		t.Fatalf("expected package not installed, got %v", err)
	}
}

func TestSwitchBetweenVersions(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, []string{"foo"})
	env.addArtifact("foo", "1.1", nil, []string{"foo"})

	if err := env.install("foo=1.0"); err != nil {
		t.Fatal(err)
	}
	if err := env.install("foo=1.1"); err != nil {
		t.Fatal(err)
	}
	if cur := env.engine.currentVersion("foo"); cur != "1.1" {
		t.Fatalf("current = %s, want 1.1", cur)
	}

	launcherBefore, _ := os.ReadFile(env.engine.Paths.LauncherPath("foo"))
	if err := env.engine.Switch(context.Background(), "foo", "1.0"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if cur := env.engine.currentVersion("foo"); cur != "1.0" {
		t.Errorf("current = %s, want 1.0", cur)
	}
	launcherAfter, _ := os.ReadFile(env.engine.Paths.LauncherPath("foo"))
	if !bytes.Equal(launcherBefore, launcherAfter) {
		t.Error("switch must not rewrite launcher scripts")
	}
}

func TestSwitchUnknownVersion(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, nil)
	if err := env.install("foo"); err != nil {
		t.Fatal(err)
	}
	err := env.engine.Switch(context.Background(), "foo", "9.9")
	if !operr.IsKind(err, operr.KindVersionNotFound) {
		t.Fatalf("expected version not found, got %v", err)
	}
}

func TestUpdateSkipsPinned(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, nil)

	if err := env.install("foo=1.0"); err != nil {
		t.Fatal(err)
	}
	if err := env.engine.Pin(context.Background(), "foo", "1.0"); err != nil {
		t.Fatal(err)
	}

	// The index later publishes 1.1.
	env.addArtifact("foo", "1.1", nil, nil)

	env.out.Reset()
	res, err := env.engine.Update(context.Background())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Updated != 0 || res.Unchanged != 1 {
		t.Errorf("result = %+v, want updated 0, current 1", res)
	}
	if !strings.Contains(env.out.String(), "updated 0, current 1") {
		t.Errorf("output = %q", env.out.String())
	}
	entry, _ := env.journal().Entry("foo", "1.0")
	if !entry.Pin {
		t.Error("pin flag lost across update")
	}
	if _, ok := env.journal().Entry("foo", "1.1"); ok {
		t.Error("pinned package was updated")
	}
}

func TestUpdateInstallsNewer(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, nil)
	if err := env.install("foo=1.0"); err != nil {
		t.Fatal(err)
	}
	env.addArtifact("foo", "1.1", nil, nil)

	res, err := env.engine.Update(context.Background())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("updated = %d, want 1", res.Updated)
	}
	j := env.journal()
	if _, ok := j.Entry("foo", "1.1"); !ok {
		t.Error("new version not installed")
	}
	if _, ok := j.Entry("foo", "1.0"); ok {
		t.Error("old version not removed")
	}
	if cur := env.engine.currentVersion("foo"); cur != "1.1" {
		t.Errorf("current = %s, want 1.1", cur)
	}
}

func TestOutdatedReadOnly(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, nil)
	if err := env.install("foo"); err != nil {
		t.Fatal(err)
	}
	env.addArtifact("foo", "2.0", nil, nil)

	out, err := env.engine.Outdated(context.Background())
	if err != nil {
		t.Fatalf("outdated: %v", err)
	}
	if len(out) != 1 || out[0].Current != "1.0" || out[0].Latest != "2.0" {
		t.Errorf("outdated = %+v", out)
	}
	// Nothing changed.
	if _, ok := env.journal().Entry("foo", "1.0"); !ok {
		t.Error("outdated mutated the journal")
	}
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, nil)
	if err := env.install("foo"); err != nil {
		t.Fatal(err)
	}

	if err := env.engine.Verify(context.Background(), "foo"); err != nil {
		t.Fatalf("verify after clean install: %v", err)
	}

	// Corrupt the cached archive: verify must fail.
	if err := os.WriteFile(env.engine.Paths.CachedArchive("foo", "1.0"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := env.engine.Verify(context.Background(), "foo")
	if !operr.IsKind(err, operr.KindVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}
}

func TestRunPropagatesExitStatus(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, []string{"foo"})
	if err := env.install("foo"); err != nil {
		t.Fatal(err)
	}

	// The stub helper ignores its arguments and exits 0.
	status, err := env.engine.Run(context.Background(), Spec{Name: "foo"}, "foo", nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if status != 0 {
		t.Errorf("status = %d", status)
	}

	_, err = env.engine.Run(context.Background(), Spec{Name: "foo"}, "not-a-bin", nil)
	if !operr.IsKind(err, operr.KindInvalidArguments) {
		t.Fatalf("expected invalid arguments for undeclared binary, got %v", err)
	}
}

func TestCleanPrunesCacheAndStaleTmp(t *testing.T) {
	env := newTestEnv(t)
	env.addArtifact("foo", "1.0", nil, nil)
	if err := env.install("foo"); err != nil {
		t.Fatal(err)
	}
	stale := env.engine.Paths.TmpVersionDir("foo", "9.9")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := env.engine.Clean(context.Background()); err != nil {
		t.Fatalf("clean: %v", err)
	}
	entries, _ := os.ReadDir(env.engine.Paths.CacheRoot)
	if len(entries) != 0 {
		t.Error("cache not emptied")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale tmp not pruned")
	}
	// The installed version itself is untouched.
	if _, err := os.Stat(env.engine.Paths.VersionDir("foo", "1.0")); err != nil {
		t.Error("clean touched an installed version")
	}
}

func TestParseSpec(t *testing.T) {
	spec, err := ParseSpec("foo=1.0")
	if err != nil || spec.Name != "foo" || spec.Version != "1.0" {
		t.Errorf("ParseSpec(foo=1.0) = %+v, %v", spec, err)
	}
	spec, err = ParseSpec("bar")
	if err != nil || spec.Name != "bar" || spec.Version != "" {
		t.Errorf("ParseSpec(bar) = %+v, %v", spec, err)
	}
	if _, err := ParseSpec(""); !operr.IsKind(err, operr.KindInvalidArguments) {
		t.Errorf("ParseSpec(\"\") err = %v", err)
	}
	if got := (Spec{Name: "foo", Version: "1.0"}).Requirement(); got != "=1.0" {
		t.Errorf("Requirement = %q", got)
	}
}
