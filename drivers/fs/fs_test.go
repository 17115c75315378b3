package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arbiter-go/storage/errs"
)

func TestGetPutRoundTrip(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	d := New("")
	path := filepath.Join(dir, "a", "b", "file.txt")

	assert.NoError(d.Put(context.Background(), path, []byte("hello")))
	data, err := d.Get(context.Background(), path)
	assert.NoError(err)
	assert.Equal("hello", string(data))
}

func TestGetMissingIsNotFound(t *testing.T) {
	d := New("")
	_, err := d.Get(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestTryGetMissing(t *testing.T) {
	assert := assert.New(t)
	d := New("")
	data, ok, err := d.TryGet(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.NoError(err)
	assert.False(ok)
	assert.Nil(data)
}

func TestSize(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	d := New("")
	path := filepath.Join(dir, "f")
	assert.NoError(d.Put(context.Background(), path, []byte("12345")))
	size, err := d.Size(context.Background(), path)
	assert.NoError(err)
	assert.EqualValues(5, size)
}

func TestCopy(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	d := New("")
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	assert.NoError(d.Put(context.Background(), src, []byte("data")))
	assert.NoError(d.Copy(context.Background(), src, dst))
	data, err := d.Get(context.Background(), dst)
	assert.NoError(err)
	assert.Equal("data", string(data))
}

func TestGlobOneLevel(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	d := New("")
	for _, name := range []string{"a.txt", "b.txt"} {
		assert.NoError(d.Put(context.Background(), filepath.Join(dir, name), []byte("x")))
	}
	assert.NoError(os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	matches, err := d.Glob(context.Background(), filepath.Join(dir, "*"), false)
	assert.NoError(err)
	assert.Len(matches, 2)
}

func TestGlobRecursive(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	d := New("")
	assert.NoError(d.Put(context.Background(), filepath.Join(dir, "sub", "deep.txt"), []byte("x")))
	assert.NoError(d.Put(context.Background(), filepath.Join(dir, "top.txt"), []byte("x")))

	matches, err := d.Glob(context.Background(), dir+string(filepath.Separator)+"**", false)
	assert.NoError(err)
	assert.Len(matches, 2)
}

func TestGlobNoWildcardResolvesToSelf(t *testing.T) {
	assert := assert.New(t)
	d := New("")
	matches, err := d.Glob(context.Background(), "/some/path", false)
	assert.NoError(err)
	assert.Equal([]string{"/some/path"}, matches)
}

func TestGetBinaryChunk(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	d := New("")
	path := filepath.Join(dir, "f")
	assert.NoError(d.Put(context.Background(), path, []byte("0123456789")))
	chunk, err := d.GetBinaryChunk(path, 2, 5)
	assert.NoError(err)
	assert.Equal("234", string(chunk))
}

func TestProfiledProtocol(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("fs", New("").ProfiledProtocol())
	assert.Equal("fs+alt", New("alt").ProfiledProtocol())
}
