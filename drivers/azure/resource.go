package azure

import "strings"

// Resource is the parsed (account-relative) decomposition of an Azure
// driver path: "<container>/<blob/path>".
type Resource struct {
	Container string
	Object    string
}

// ParseResource splits path on its first "/".
func ParseResource(path string) Resource {
	path = strings.TrimPrefix(path, "/")
	idx := strings.Index(path, "/")
	if idx < 0 {
		return Resource{Container: path}
	}
	return Resource{Container: path[:idx], Object: path[idx+1:]}
}

func endpointOrDefault(endpoint string) string {
	if endpoint != "" {
		return endpoint
	}
	return "core.windows.net"
}

// URL builds the blob URL for account.
func (r Resource) URL(account, endpoint string) string {
	base := "https://" + account + ".blob." + endpointOrDefault(endpoint) + "/" + r.Container
	if r.Object != "" {
		base += "/" + r.Object
	}
	return base
}
