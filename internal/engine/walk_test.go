package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func paths(fs []File) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Path)
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func TestWalkFiltersAndIgnores(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.txt", "hello")
	writeTemp(t, dir, "src/app.go", "package main")
	writeTemp(t, dir, "node_modules/x/index.js", "var a = 1")
	writeTemp(t, dir, "skip/me.txt", "secret")
	writeTemp(t, dir, "inline.txt", "# leakgate:ignore-file\nsecret")
	writeTemp(t, dir, "big.txt", stringOf('a', 2048))
	writeTemp(t, dir, "blob.dat", "ab\x00cd")
	writeTemp(t, dir, ".leakgateignore", "skip/\n")

	fs, err := Walk(context.Background(), WalkConfig{Root: dir, MaxBytes: 1024, DefaultExcludes: true})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(fs)
	for _, want := range []string{"a.txt", "src/app.go"} {
		if !contains(got, want) {
			t.Fatalf("expected %s in %v", want, got)
		}
	}
	for _, bad := range []string{"node_modules/x/index.js", "skip/me.txt", "inline.txt", "big.txt", "blob.dat"} {
		if contains(got, bad) {
			t.Fatalf("did not expect %s in %v", bad, got)
		}
	}
}

func TestWalkIncludeExclude(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a/keep.yaml", "k: v")
	writeTemp(t, dir, "a/drop.yaml", "k: v")
	writeTemp(t, dir, "b/other.txt", "x")

	fs, err := Walk(context.Background(), WalkConfig{
		Root:    dir,
		Include: SplitGlobs("**/*.yaml"),
		Exclude: SplitGlobs("a/drop.yaml, "),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(fs)
	if len(got) != 1 || got[0] != "a/keep.yaml" {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestWalkOrderIsLexical(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "b.txt", "b")
	writeTemp(t, dir, "a.txt", "a")
	writeTemp(t, dir, "c/d.txt", "d")
	fs, err := Walk(context.Background(), WalkConfig{Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(fs)
	want := []string{"a.txt", "b.txt", "c/d.txt"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestWalkCanceled(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.txt", "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Walk(ctx, WalkConfig{Root: dir}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestDefaultFileExcluded(t *testing.T) {
	for _, p := range []string{"web/app.min.js", "go.sum", "img/logo.png", "yarn.lock", "api/x.pb.go"} {
		if !isDefaultFileExcluded(p) {
			t.Fatalf("expected %s excluded", p)
		}
	}
	if isDefaultFileExcluded("config/settings.py") {
		t.Fatal("settings.py should not be excluded")
	}
}

func stringOf(c byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}
