package gcs

import (
	"net/url"
	"strings"
)

// Resource is the parsed (bucket, object) decomposition of a gs driver path.
type Resource struct {
	Bucket string
	Object string
}

// ParseResource splits path on its first "/".
func ParseResource(path string) Resource {
	path = strings.TrimPrefix(path, "/")
	idx := strings.Index(path, "/")
	if idx < 0 {
		return Resource{Bucket: path}
	}
	return Resource{Bucket: path[:idx], Object: path[idx+1:]}
}

const storageAPI = "https://storage.googleapis.com/storage/v1"
const uploadAPI = "https://storage.googleapis.com/upload/storage/v1"

// GetURL is the JSON-API download endpoint for the object's bytes.
func (r Resource) GetURL() string {
	return storageAPI + "/b/" + r.Bucket + "/o/" + url.QueryEscape(r.Object) + "?alt=media"
}

// MetadataURL is the JSON-API object-metadata endpoint.
func (r Resource) MetadataURL() string {
	return storageAPI + "/b/" + r.Bucket + "/o/" + url.QueryEscape(r.Object)
}

// UploadURL is the upload endpoint for either multipart or resumable Put.
func (r Resource) UploadURL() string {
	return uploadAPI + "/b/" + r.Bucket + "/o"
}

// ListURL is the bucket-listing endpoint used by Glob.
func (r Resource) ListURL() string {
	return storageAPI + "/b/" + r.Bucket + "/o"
}
