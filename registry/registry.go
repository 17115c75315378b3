// Package registry parses scheme-prefixed paths, builds drivers from a
// configuration document, and dispatches operations to the right backend.
package registry

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/arbiter-go/storage/drivers"
	"github.com/arbiter-go/storage/drivers/azure"
	"github.com/arbiter-go/storage/drivers/dropbox"
	"github.com/arbiter-go/storage/drivers/fs"
	"github.com/arbiter-go/storage/drivers/gcs"
	"github.com/arbiter-go/storage/drivers/httpdrv"
	"github.com/arbiter-go/storage/drivers/onedrive"
	"github.com/arbiter-go/storage/drivers/s3"
	"github.com/arbiter-go/storage/errs"
	"github.com/arbiter-go/storage/transport"
)

// Config is the top-level configuration document, one key per scheme, per
// spec.md section 6.
type Config struct {
	S3   json.RawMessage `json:"s3,omitempty"`
	GS   json.RawMessage `json:"gs,omitempty"`
	AZ   json.RawMessage `json:"az,omitempty"`
	OD   json.RawMessage `json:"od,omitempty"`
	HTTP json.RawMessage `json:"http,omitempty"`
}

// ParseType splits a path into (scheme, profile, remainder) per spec.md
// section 4.2: the portion before "://" is "type", split on "+" into
// scheme and optional profile (default "default"); the remainder is the
// portion after "://". A path with no "://" is a local filesystem path.
func ParseType(path string) (scheme, profile, remainder string) {
	idx := strings.Index(path, "://")
	if idx < 0 {
		return "fs", "default", path
	}
	typ := path[:idx]
	remainder = path[idx+3:]
	if p := strings.Index(typ, "+"); p >= 0 {
		return typ[:p], typ[p+1:], remainder
	}
	return typ, "default", remainder
}

// IsHTTPDerived reports whether path carries a scheme[+profile]:// prefix
// (and is therefore routed to one of the HTTP-derived remote drivers)
// rather than being a bare local filesystem path.
func IsHTTPDerived(path string) bool {
	return strings.Contains(path, "://")
}

// Descriptor summarizes one registered driver, generalizing the teacher's
// DescribeDriversJson/DescribeHandlersJson pattern for the CLI's -describe
// flag.
type Descriptor struct {
	Scheme  string `json:"scheme"`
	Profile string `json:"profile"`
	Remote  bool   `json:"remote"`
}

// Registry is an immutable scheme[+profile] -> Driver mapping, built once
// at startup and safely callable from many goroutines thereafter.
type Registry struct {
	drivers map[string]drivers.Driver
}

// Build constructs a Registry from cfg. A cloud scheme (s3, az, gs, od) is
// attempted only when cfg carries a section for it; a scheme whose section
// is absent, does not parse, or whose driver cannot be constructed is
// simply not registered, rather than failing the whole build. Environment
// variables are consulted only inside a driver's own constructor (the s3
// credential chain), so a scheme with no section in cfg is not registered
// even when its credentials are in the environment. The filesystem driver,
// the dropbox stub and plain http/https are always registered.
func Build(cfg Config, pool *transport.Pool, defaultRetry int) (*Registry, error) {
	reg := &Registry{drivers: map[string]drivers.Driver{}}
	reg.register(fs.New(""))

	if d, ok := buildS3(cfg, pool, defaultRetry); ok {
		reg.register(d)
	}
	if d, ok := buildAzure(cfg, pool, defaultRetry); ok {
		reg.register(d)
	}
	if d, ok := buildGCS(cfg, pool, defaultRetry); ok {
		reg.register(d)
	}
	if d, ok := buildOneDrive(cfg, pool, defaultRetry); ok {
		reg.register(d)
	}
	reg.register(dropbox.New(""))
	reg.register(httpdrv.New("http", pool, defaultRetry, ""))
	reg.register(httpdrv.New("https", pool, defaultRetry, ""))

	return reg, nil
}

func (r *Registry) register(d drivers.Driver) {
	r.drivers[d.ProfiledProtocol()] = d
}

// Resolve returns the driver registered for path's scheme[+profile] and
// the operation-relative remainder, or a ConfigError if no such driver is
// registered.
func (r *Registry) Resolve(path string) (drivers.Driver, string, error) {
	scheme, profile, remainder := ParseType(path)
	key := drivers.ProfiledProtocol(scheme, profile)
	d, ok := r.drivers[key]
	if !ok {
		return nil, "", errs.New(errs.ConfigError, "registry.Resolve", "no driver registered for "+key)
	}
	return d, remainder, nil
}

// Describe returns a stable-ordered descriptor list of every registered
// driver.
func (r *Registry) Describe() []Descriptor {
	out := make([]Descriptor, 0, len(r.drivers))
	for _, d := range r.drivers {
		out = append(out, Descriptor{Scheme: d.Protocol(), Profile: d.Profile(), Remote: d.IsRemote()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scheme != out[j].Scheme {
			return out[i].Scheme < out[j].Scheme
		}
		return out[i].Profile < out[j].Profile
	})
	return out
}

// DefaultCopy is the get+put Copy strategy over any Driver. The drivers
// whose Copy has no cheaper native form (fs, S3, GCS, OneDrive, the plain
// HTTP driver) implement the same get+put inline in their own Copy methods
// rather than calling this function.
func DefaultCopy(ctx context.Context, d drivers.Driver, srcPath, dstPath string) error {
	data, err := d.Get(ctx, srcPath)
	if err != nil {
		return err
	}
	return d.Put(ctx, dstPath, data)
}

func buildS3(cfg Config, pool *transport.Pool, retry int) (*s3.Driver, bool) {
	if len(cfg.S3) == 0 {
		return nil, false
	}
	var s3cfg s3.Config
	if err := json.Unmarshal(cfg.S3, &s3cfg); err != nil {
		return nil, false
	}
	d, err := s3.New(s3cfg, pool, retry)
	if err != nil {
		return nil, false
	}
	return d, true
}

func buildAzure(cfg Config, pool *transport.Pool, retry int) (*azure.Driver, bool) {
	if len(cfg.AZ) == 0 {
		return nil, false
	}
	var azcfg azure.Config
	if err := json.Unmarshal(cfg.AZ, &azcfg); err != nil {
		return nil, false
	}
	d, err := azure.New(azcfg, pool, retry)
	if err != nil {
		return nil, false
	}
	return d, true
}

func buildGCS(cfg Config, pool *transport.Pool, retry int) (*gcs.Driver, bool) {
	if len(cfg.GS) == 0 {
		return nil, false
	}
	keyJSON := []byte(cfg.GS)
	var keyPath string
	if err := json.Unmarshal(cfg.GS, &keyPath); err == nil {
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, false
		}
		keyJSON = data
	}
	d, err := gcs.New(gcs.Config{ServiceAccountJSON: keyJSON}, pool, retry)
	if err != nil {
		return nil, false
	}
	return d, true
}

func buildOneDrive(cfg Config, pool *transport.Pool, retry int) (*onedrive.Driver, bool) {
	if len(cfg.OD) == 0 {
		return nil, false
	}
	var odcfg onedrive.Config
	if err := json.Unmarshal(cfg.OD, &odcfg); err != nil {
		return nil, false
	}
	d, err := onedrive.New(odcfg, pool, retry)
	if err != nil {
		return nil, false
	}
	return d, true
}
