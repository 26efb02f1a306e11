package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steward-dev/steward/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCreateAndRestore(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "main.go")
	missing := filepath.Join(dir, "new.go")
	writeFile(t, existing, "original\n")

	s := NewStore(dir, Options{}, nil)
	id, err := s.Create("ses_1", "before edit", existing, missing)
	require.NoError(t, err)
	assert.Contains(t, id, "ckpt_")

	cp, ok := s.Get(id)
	require.True(t, ok)
	require.Len(t, cp.Files, 2)
	assert.Equal(t, types.SnapshotModified, cp.Files[0].Kind)
	assert.Equal(t, types.SnapshotCreated, cp.Files[1].Kind)

	// Mutate the tree the way a tool would.
	writeFile(t, existing, "clobbered\n")
	writeFile(t, missing, "created by tool\n")

	require.True(t, s.Restore(id))

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(data))
	_, err = os.Stat(missing)
	assert.True(t, os.IsNotExist(err), "created file must be deleted on restore")
}

func TestRestoreConsumesCheckpoint(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a\n")

	s := NewStore(dir, Options{}, nil)
	id, err := s.Create("ses_1", "x", filepath.Join(dir, "a.txt"))
	require.NoError(t, err)

	assert.True(t, s.Restore(id))
	assert.False(t, s.Restore(id), "second restore of the same id must fail")
	assert.False(t, s.Restore("ckpt_nonexistent"))
}

func TestCreateSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	writeFile(t, good, "ok\n")
	unreadable := filepath.Join(dir, "secret.txt")
	writeFile(t, unreadable, "nope\n")
	require.NoError(t, os.Chmod(unreadable, 0o000))
	t.Cleanup(func() { _ = os.Chmod(unreadable, 0o644) })

	if os.Geteuid() == 0 {
		t.Skip("chmod has no effect for root")
	}

	s := NewStore(dir, Options{}, nil)
	id, err := s.Create("ses_1", "partial", good, unreadable)
	require.NoError(t, err)

	cp, ok := s.Get(id)
	require.True(t, ok)
	assert.Len(t, cp.Files, 1, "unreadable file is skipped, not fatal")

	strict := NewStore(dir, Options{FailOnCaptureError: true}, nil)
	_, err = strict.Create("ses_1", "strict", good, unreadable)
	assert.Error(t, err)
}

func TestListAndCleanup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a\n")

	s := NewStore(dir, Options{}, nil)
	_, err := s.Create("ses_1", "one", filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	_, err = s.Create("ses_1", "two", filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	_, err = s.Create("ses_2", "other", filepath.Join(dir, "a.txt"))
	require.NoError(t, err)

	assert.Len(t, s.List("ses_1"), 2)
	assert.Len(t, s.List(""), 3)

	assert.Equal(t, 2, s.Cleanup("ses_1"))
	assert.Empty(t, s.List("ses_1"))
	assert.Len(t, s.List("ses_2"), 1)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	persist := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	writeFile(t, target, "v1\n")

	s := NewStore(dir, Options{PersistDir: persist}, nil)
	id, err := s.Create("ses_1", "persisted", target)
	require.NoError(t, err)

	onDisk := filepath.Join(persist, "ses_1", id+".json")
	_, err = os.Stat(onDisk)
	require.NoError(t, err, "checkpoint should be mirrored to disk")

	// A fresh store (new process) can still restore from disk.
	writeFile(t, target, "v2\n")
	fresh := NewStore(dir, Options{PersistDir: persist}, nil)
	require.True(t, fresh.Restore(id))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "v1\n", string(data))

	_, err = os.Stat(onDisk)
	assert.True(t, os.IsNotExist(err), "persisted copy is removed after restore")
}
