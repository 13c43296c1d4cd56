package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, body string, when time.Time) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	sig := &object.Signature{Name: "Test User", Email: "test@example.com", When: when}
	_, err = wt.Commit("update "+name, &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
}

func TestAgeDaysFromBlame(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	commitFile(t, repo, dir, "src/config.py", "TOKEN = 1\n", old)
	commitFile(t, repo, dir, "src/config.py", "TOKEN = 1\nOTHER = 2\n", recent)

	r, err := Open(dir)
	require.NoError(t, err)
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int(now.Sub(old).Hours()/24), r.AgeDays("src/config.py", 1, now))
	assert.Equal(t, 31, r.AgeDays("src/config.py", 2, now))
	assert.Equal(t, 0, r.AgeDays("src/config.py", 3, now), "line past end of HEAD content")
	assert.Equal(t, 0, r.AgeDays("src/untracked.py", 1, now))

	_, err = r.LineDate("missing.txt", 1)
	assert.ErrorIs(t, err, ErrUntracked)
}

func TestOpenFromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	when := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	commitFile(t, repo, dir, "svc/api/keys.env", "A=1\n", when)

	r, err := Open(filepath.Join(dir, "svc"))
	require.NoError(t, err)
	got, err := r.LineDate("api/keys.env", 1)
	require.NoError(t, err)
	assert.True(t, got.Equal(when))
}

func TestMetadata(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, repo, dir, "a.txt", "x\n", time.Now())
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{"git@github.com:acme/widgets.git"}})
	require.NoError(t, err)

	r, err := Open(dir)
	require.NoError(t, err)
	m := r.Metadata()
	assert.Equal(t, "acme/widgets", m.Repo)
	assert.Len(t, m.Commit, 40)
	assert.Equal(t, "master", m.Branch)
}

func TestShortRepo(t *testing.T) {
	assert.Equal(t, "acme/widgets", shortRepo("https://github.com/acme/widgets.git"))
	assert.Equal(t, "acme/widgets", shortRepo("git@gitlab.example:acme/widgets.git"))
	assert.Equal(t, "https://gitlab.example/acme/widgets", shortRepo("https://gitlab.example/acme/widgets"))
}

func TestOpenRejectsNonRepo(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("expected error outside a repository")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
