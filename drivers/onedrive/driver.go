package onedrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang/glog"

	"github.com/arbiter-go/storage/drivers"
	"github.com/arbiter-go/storage/drivers/httpdrv"
	"github.com/arbiter-go/storage/errs"
	"github.com/arbiter-go/storage/transport"
)

const graphBase = "https://graph.microsoft.com/v1.0"

// simpleUploadThreshold is the size above which Put must open an upload
// session rather than PUT the bytes directly, restored from
// original_source/arbiter/drivers/onedrive.cpp (the distilled spec elides
// this indirection).
const simpleUploadThreshold = 4 * 1024 * 1024

// Config is the od section of the registry's configuration document, per
// spec.md section 6.
type Config struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TenantID     string `json:"tenant_id"`
	RedirectURI  string `json:"redirect_uri"`
	Profile      string `json:"-"`
}

// Driver is the OneDrive backend.
type Driver struct {
	httpdrv.Base
	pool  *transport.Pool
	creds *Credentials
}

// New returns the OneDrive driver seeded with cfg's credential record.
func New(cfg Config, pool *transport.Pool, retry int) (*Driver, error) {
	if cfg.RefreshToken == "" || cfg.ClientID == "" {
		return nil, errs.New(errs.ConfigError, "onedrive.New", "missing refresh_token or client_id")
	}
	creds := &Credentials{
		AccessToken:  cfg.AccessToken,
		RefreshToken: cfg.RefreshToken,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TenantID:     cfg.TenantID,
		RedirectURI:  cfg.RedirectURI,
	}
	return &Driver{Base: httpdrv.NewBase(pool, retry, cfg.Profile), pool: pool, creds: creds}, nil
}

var _ drivers.Driver = (*Driver)(nil)

func (d *Driver) Protocol() string         { return "od" }
func (d *Driver) IsRemote() bool           { return true }
func (d *Driver) ProfiledProtocol() string { return drivers.ProfiledProtocol("od", d.Profile()) }

func (d *Driver) bearer(ctx context.Context) (string, error) {
	return d.creds.refresh(ctx, nowFunc(), func(ctx context.Context, tenant, form string) ([]byte, error) {
		return doRefreshRequest(ctx, d.pool, tenant, form)
	})
}

func itemPath(path string) string {
	path = strings.TrimPrefix(path, "/")
	return graphBase + "/me/drive/root:/" + path
}

type itemMetadata struct {
	ID          string `json:"id"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl"`
	Folder      *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
}

func (d *Driver) metadata(ctx context.Context, path string) (*itemMetadata, error) {
	token, err := d.bearer(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := d.Do(ctx, http.MethodGet, itemPath(path), map[string]string{"Authorization": "Bearer " + token}, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, errs.New(httpdrv.StatusToKind(resp.StatusCode), "onedrive.metadata", path)
	}
	var meta itemMetadata
	if err := json.Unmarshal(resp.Body, &meta); err != nil {
		return nil, errs.Wrap(errs.BackendError, "onedrive.metadata", path, err)
	}
	return &meta, nil
}

// Get resolves the item's @microsoft.graph.downloadUrl via a metadata
// round-trip and fetches it, rather than assuming a fixed content
// endpoint — restored from the original implementation.
func (d *Driver) Get(ctx context.Context, path string) ([]byte, error) {
	meta, err := d.metadata(ctx, path)
	if err != nil {
		return nil, err
	}
	if meta.DownloadURL == "" {
		return nil, errs.New(errs.BackendError, "onedrive.Get", path)
	}
	resp, err := d.Do(ctx, http.MethodGet, meta.DownloadURL, nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, errs.New(httpdrv.StatusToKind(resp.StatusCode), "onedrive.Get", path)
	}
	return resp.Body, nil
}

func (d *Driver) TryGet(ctx context.Context, path string) ([]byte, bool, error) {
	data, err := d.Get(ctx, path)
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Put writes data to path directly when under simpleUploadThreshold, else
// opens an upload session and streams fixed chunks.
func (d *Driver) Put(ctx context.Context, path string, data []byte) error {
	if len(data) < simpleUploadThreshold {
		return d.putSimple(ctx, path, data)
	}
	return d.putSession(ctx, path, data)
}

func (d *Driver) putSimple(ctx context.Context, path string, data []byte) error {
	token, err := d.bearer(ctx)
	if err != nil {
		return err
	}
	resp, err := d.Do(ctx, http.MethodPut, itemPath(path)+":/content", map[string]string{"Authorization": "Bearer " + token}, nil, data, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return errs.New(httpdrv.StatusToKind(resp.StatusCode), "onedrive.Put", path)
	}
	return nil
}

const uploadSessionChunkSize = 10 * 1024 * 1024

func (d *Driver) putSession(ctx context.Context, path string, data []byte) error {
	token, err := d.bearer(ctx)
	if err != nil {
		return err
	}
	initResp, err := d.Do(ctx, http.MethodPost, itemPath(path)+":/createUploadSession", map[string]string{
		"Authorization": "Bearer " + token,
		"Content-Type":  "application/json",
	}, nil, []byte(`{"item":{"@microsoft.graph.conflictBehavior":"replace"}}`), nil)
	if err != nil {
		return err
	}
	if !initResp.OK() {
		return errs.New(httpdrv.StatusToKind(initResp.StatusCode), "onedrive.Put", path)
	}
	var session struct {
		UploadURL string `json:"uploadUrl"`
	}
	if err := json.Unmarshal(initResp.Body, &session); err != nil {
		return errs.Wrap(errs.BackendError, "onedrive.Put", path, err)
	}

	total := int64(len(data))
	for start := int64(0); start < total; start += uploadSessionChunkSize {
		end := start + uploadSessionChunkSize
		if end > total {
			end = total
		}
		chunk := data[start:end]
		headers := map[string]string{
			"Content-Range": fmt.Sprintf("bytes %d-%d/%d", start, end-1, total),
		}
		resp, err := d.Do(ctx, http.MethodPut, session.UploadURL, headers, nil, chunk, nil)
		if err != nil {
			return err
		}
		if !resp.OK() && resp.StatusCode != http.StatusAccepted {
			return errs.New(httpdrv.StatusToKind(resp.StatusCode), "onedrive.Put", path)
		}
	}
	return nil
}

func (d *Driver) Size(ctx context.Context, path string) (int64, error) {
	meta, err := d.metadata(ctx, path)
	if err != nil {
		return 0, err
	}
	return meta.Size, nil
}

func (d *Driver) TrySize(ctx context.Context, path string) (int64, bool, error) {
	size, err := d.Size(ctx, path)
	if err != nil {
		if errs.KindOf(err) == errs.NotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return size, true, nil
}

func (d *Driver) Copy(ctx context.Context, src, dst string) error {
	data, err := d.Get(ctx, src)
	if err != nil {
		return err
	}
	return d.Put(ctx, dst, data)
}

type driveItem struct {
	Name   string `json:"name"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
}

type childrenResponse struct {
	Value    []driveItem `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// Glob walks the children listing per spec.md section 4.8, recursing into
// items carrying a folder facet when recursive.
func (d *Driver) Glob(ctx context.Context, pattern string, verbose bool) ([]string, error) {
	if !strings.HasSuffix(pattern, "*") {
		return []string{drivers.Reprefix(d, pattern)}, nil
	}
	recursive := strings.HasSuffix(pattern, "**")
	prefix := strings.TrimSuffix(strings.TrimSuffix(pattern, "**"), "*")
	prefix = strings.TrimSuffix(prefix, "/")

	token, err := d.bearer(ctx)
	if err != nil {
		return nil, err
	}
	matches, err := d.listChildren(ctx, token, prefix, recursive, verbose)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = drivers.Reprefix(d, m)
	}
	return out, nil
}

func (d *Driver) listChildren(ctx context.Context, token, prefix string, recursive, verbose bool) ([]string, error) {
	var out []string
	url := itemPath(prefix) + ":/children"
	for url != "" {
		resp, err := d.Do(ctx, http.MethodGet, url, map[string]string{"Authorization": "Bearer " + token}, nil, nil, nil)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, errs.New(httpdrv.StatusToKind(resp.StatusCode), "onedrive.Glob", prefix)
		}
		var page childrenResponse
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, errs.Wrap(errs.BackendError, "onedrive.Glob", prefix, err)
		}
		for _, item := range page.Value {
			childPath := prefix + "/" + item.Name
			if item.Folder != nil {
				if recursive {
					children, err := d.listChildren(ctx, token, childPath, recursive, verbose)
					if err != nil {
						return nil, err
					}
					out = append(out, children...)
				}
				continue
			}
			out = append(out, childPath)
		}
		if verbose {
			glog.V(2).Infof("onedrive glob: %s: %d entries so far", prefix, len(out))
		}
		url = page.NextLink
	}
	return out, nil
}
