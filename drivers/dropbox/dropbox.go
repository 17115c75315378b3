// Package dropbox stubs out the Dropbox backend. The source this module
// was distilled from ships a stubbed Dropbox driver (see spec.md section 9
// Open Questions); every operation here returns errs.UnsupportedOperation
// rather than attempting a partial implementation against ambiguous
// upstream behavior.
package dropbox

import (
	"context"

	"github.com/arbiter-go/storage/drivers"
	"github.com/arbiter-go/storage/errs"
)

// Driver is the Dropbox placeholder backend registered under the "dbx"
// scheme.
type Driver struct {
	profile string
}

// New returns the Dropbox stub driver for the given profile.
func New(profile string) *Driver {
	if profile == "" {
		profile = "default"
	}
	return &Driver{profile: profile}
}

var _ drivers.Driver = (*Driver)(nil)

func (d *Driver) Protocol() string         { return "dbx" }
func (d *Driver) Profile() string          { return d.profile }
func (d *Driver) IsRemote() bool           { return true }
func (d *Driver) ProfiledProtocol() string { return drivers.ProfiledProtocol("dbx", d.profile) }

func unsupported(op string) error {
	return errs.New(errs.UnsupportedOperation, op, "dropbox driver is not implemented")
}

func (d *Driver) Get(ctx context.Context, path string) ([]byte, error) {
	return nil, unsupported("dropbox.Get")
}

func (d *Driver) TryGet(ctx context.Context, path string) ([]byte, bool, error) {
	return nil, false, unsupported("dropbox.TryGet")
}

func (d *Driver) Put(ctx context.Context, path string, data []byte) error {
	return unsupported("dropbox.Put")
}

func (d *Driver) Size(ctx context.Context, path string) (int64, error) {
	return 0, unsupported("dropbox.Size")
}

func (d *Driver) TrySize(ctx context.Context, path string) (int64, bool, error) {
	return 0, false, unsupported("dropbox.TrySize")
}

func (d *Driver) Copy(ctx context.Context, src, dst string) error {
	return unsupported("dropbox.Copy")
}

func (d *Driver) Glob(ctx context.Context, pattern string, verbose bool) ([]string, error) {
	return nil, unsupported("dropbox.Glob")
}
