package s3

import "strings"

// Resource is the parsed (bucket, object) decomposition of a driver-relative
// path, e.g. "my-bucket/a/b/c.bin" -> bucket="my-bucket", object="a/b/c.bin".
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

// URL returns the virtual-hosted-style endpoint for the resource, or the
// path-style endpoint when endpoint is an explicit override.
func (r Resource) URL(region, endpoint string) string {
	if endpoint != "" {
		return strings.TrimSuffix(endpoint, "/") + "/" + r.Bucket + "/" + r.Object
	}
	host := "s3.amazonaws.com"
	if region != "" && region != "us-east-1" {
		host = "s3." + region + ".amazonaws.com"
	}
	return "https://" + r.Bucket + "." + host + "/" + r.Object
}

// BucketURL is URL with an empty object, used by Glob's listing request.
func (r Resource) BucketURL(region, endpoint string) string {
	withoutObject := Resource{Bucket: r.Bucket}
	u := withoutObject.URL(region, endpoint)
	return strings.TrimSuffix(u, "/")
}
