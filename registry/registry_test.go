package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiter-go/storage/transport"
)

func TestParseType(t *testing.T) {
	cases := []struct {
		path                       string
		scheme, profile, remainder string
	}{
		{"s3://bucket/key", "s3", "default", "bucket/key"},
		{"s3+staging://bucket/key", "s3", "staging", "bucket/key"},
		{"/local/path", "fs", "default", "/local/path"},
		{"~/local/path", "fs", "default", "~/local/path"},
		{"https://example.com/x", "https", "default", "example.com/x"},
	}
	for _, c := range cases {
		scheme, profile, remainder := ParseType(c.path)
		assert.Equal(t, c.scheme, scheme, c.path)
		assert.Equal(t, c.profile, profile, c.path)
		assert.Equal(t, c.remainder, remainder, c.path)
	}
}

func TestIsHTTPDerived(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"http://x", true},
		{"~/data", false},
		{".", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsHTTPDerived(c.path), c.path)
	}
}

func TestBuildAlwaysRegistersFs(t *testing.T) {
	require := require.New(t)
	pool, err := transport.NewPool(1, 0, transport.DefaultOptions())
	require.NoError(err)
	reg, err := Build(Config{}, pool, 0)
	require.NoError(err)
	d, remainder, err := reg.Resolve("/tmp/data.bin")
	require.NoError(err)
	assert.Equal(t, "fs", d.Protocol())
	assert.Equal(t, "/tmp/data.bin", remainder)
}

func TestResolveUnknownSchemeFails(t *testing.T) {
	require := require.New(t)
	pool, err := transport.NewPool(1, 0, transport.DefaultOptions())
	require.NoError(err)
	reg, err := Build(Config{}, pool, 0)
	require.NoError(err)
	_, _, err = reg.Resolve("s3+unconfigured://bucket/key")
	assert.Error(t, err)
}

func TestDescribeIncludesFs(t *testing.T) {
	require := require.New(t)
	pool, err := transport.NewPool(1, 0, transport.DefaultOptions())
	require.NoError(err)
	reg, err := Build(Config{}, pool, 0)
	require.NoError(err)
	found := false
	for _, d := range reg.Describe() {
		if d.Scheme == "fs" && !d.Remote {
			found = true
		}
	}
	assert.True(t, found, "fs driver not found in Describe()")
}

func TestDefaultCopyRoundTrip(t *testing.T) {
	require := require.New(t)
	pool, err := transport.NewPool(1, 0, transport.DefaultOptions())
	require.NoError(err)
	reg, err := Build(Config{}, pool, 0)
	require.NoError(err)
	d, src, err := reg.Resolve(t.TempDir() + "/a")
	require.NoError(err)
	require.NoError(d.Put(context.Background(), src, []byte("x")))
	dst := src + ".copy"
	require.NoError(DefaultCopy(context.Background(), d, src, dst))
	data, err := d.Get(context.Background(), dst)
	require.NoError(err)
	assert.Equal(t, "x", string(data))
}
