// Package drivers defines the uniform storage-backend contract every
// concrete backend (filesystem, HTTP(S), S3, Azure, GCS, OneDrive, Dropbox)
// satisfies. The backends themselves live in their own sub-packages
// (drivers/fs, drivers/s3, drivers/azure, drivers/gcs, drivers/onedrive,
// drivers/httpdrv, drivers/dropbox) and are assembled by the registry
// package.
package drivers

import "context"

// Driver is the capability set every backend exposes, per spec.md section
// 4.1. Implementations that cannot list (plain HTTP(S)) return
// errs.UnsupportedOperation from Glob.
type Driver interface {
	// Get fetches the full contents of path, failing with errs.NotFound
	// (or another taxonomy Kind) on any non-success outcome.
	Get(ctx context.Context, path string) ([]byte, error)
	// TryGet is Get's twin for a missing object: a NotFound outcome yields
	// (nil, false, nil) rather than an error. The filesystem driver reports
	// every failure that way; the remote drivers return any other failure
	// (PermissionDenied, BackendError, ...) as an error.
	TryGet(ctx context.Context, path string) ([]byte, bool, error)
	// Put creates or overwrites path with data.
	Put(ctx context.Context, path string, data []byte) error
	// Size returns path's content length, failing with errs.NotFound if
	// absent.
	Size(ctx context.Context, path string) (int64, error)
	// TrySize is Size's twin, with the same absent-versus-error rule as
	// TryGet.
	TrySize(ctx context.Context, path string) (int64, bool, error)
	// Copy copies src to dst. Every driver except Azure copies by Get then
	// Put (the same strategy as registry.DefaultCopy); Azure uses a native
	// server-side copy.
	Copy(ctx context.Context, src, dst string) error
	// Glob resolves a wildcard path ending in "*" (one level) or "**"
	// (recursive) to the list of concrete paths it matches, verbosely
	// logging progress at glog.V(2) when verbose is true.
	Glob(ctx context.Context, pattern string, verbose bool) ([]string, error)
	// IsRemote is false only for the filesystem driver.
	IsRemote() bool
	// Protocol is the driver's scheme, e.g. "s3".
	Protocol() string
	// Profile is the credential-set name selected by the "+profile"
	// suffix, "default" when none was given.
	Profile() string
	// ProfiledProtocol equals Protocol when Profile is "default", else
	// "<protocol>+<profile>".
	ProfiledProtocol() string
}

// RangeGetter is satisfied by HTTP-derived drivers that support fetching a
// byte range via a Range header. It is the tagged-variant downcast point
// Design Notes section 9 calls out: callers type-assert a Driver to
// RangeGetter rather than adding GetRange to the base contract, since the
// filesystem driver has no meaningful streamed-range notion over HTTP.
type RangeGetter interface {
	GetRange(ctx context.Context, path string, offset, length int64, headers, query map[string]string) ([]byte, error)
}

// ProfiledProtocol is the shared helper every driver uses to implement the
// Driver.ProfiledProtocol method.
func ProfiledProtocol(protocol, profile string) string {
	if profile == "" || profile == "default" {
		return protocol
	}
	return protocol + "+" + profile
}

// Reprefix restores a remote driver's scheme[+profile]:// prefix on a bare
// remainder path. Per spec.md section 4.1, both a Glob's non-wildcard
// single-element result and its wildcard matches must carry this prefix so
// the returned paths round-trip through registry.Resolve.
func Reprefix(d Driver, remainder string) string {
	return d.ProfiledProtocol() + "://" + remainder
}
