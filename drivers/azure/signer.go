package azure

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"github.com/Azure/go-autorest/autorest/date"
)

// apiVersion is the fixed x-ms-version header every request carries, per
// spec.md section 4.6.
const apiVersion = "2019-12-12"

// Credentials holds either a SharedKey account+key pair or a SAS token. Per
// spec.md section 4.6, a non-empty SAS takes priority: SAS query parameters
// are merged with the caller's query and no Authorization header is sent.
type Credentials struct {
	Account string
	Key     string
	SAS     string
}

func (c Credentials) sasMode() bool { return c.SAS != "" }

// signRequest stamps headers (in place) with x-ms-date, x-ms-version, and
// (SharedKey mode only) Authorization, for a request against resource.
// query is consulted for the canonical resource's query-parameter lines but
// is never mutated here; SAS merging happens at the call site since it
// affects the URL's query string, not the signed headers.
func signRequest(verb string, resource Resource, query map[string]string, headers map[string]string, bodyLen int, creds Credentials, now time.Time) {
	msDateBytes, _ := date.TimeRFC1123{Time: now.UTC()}.MarshalText()
	headers["x-ms-date"] = string(msDateBytes)
	headers["x-ms-version"] = apiVersion

	if verb == "PUT" || verb == "POST" {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/octet-stream"
		}
		headers["x-ms-blob-type"] = "BlockBlob"
	}

	if creds.sasMode() {
		return
	}

	canonicalHeaders := canonicalizeHeaders(headers)
	canonicalResource := canonicalizeResource(creds.Account, resource, query)
	stringToSign := buildStringToSign(verb, headers, bodyLen, canonicalHeaders, canonicalResource)

	key, err := base64.StdEncoding.DecodeString(creds.Key)
	if err != nil {
		key = []byte(creds.Key)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headers["Authorization"] = "SharedKey " + creds.Account + ":" + signature
}

func canonicalizeHeaders(headers map[string]string) string {
	type kv struct{ k, v string }
	var pairs []kv
	for k, v := range headers {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "x-ms-") || lk == "content-md5" {
			pairs = append(pairs, kv{lk, strings.TrimSpace(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.k)
		b.WriteByte(':')
		b.WriteString(p.v)
	}
	return b.String()
}

func canonicalizeResource(account string, resource Resource, query map[string]string) string {
	uri := "/" + account + "/" + resource.Container
	if resource.Object != "" {
		uri += "/" + resource.Object
	}
	if len(query) == 0 {
		return uri
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(uri)
	for _, k := range keys {
		b.WriteByte('\n')
		b.WriteString(strings.ToLower(k))
		b.WriteByte(':')
		b.WriteString(query[k])
	}
	return b.String()
}

// buildStringToSign assembles the fixed-field-order string spec.md section
// 4.6 specifies. Content-Length is emitted empty when bodyLen is zero,
// matching original_source/arbiter/drivers/az.cpp's convention (kept per
// the Open Question resolution in DESIGN.md).
func buildStringToSign(verb string, headers map[string]string, bodyLen int, canonicalHeaders, canonicalResource string) string {
	contentLength := ""
	if bodyLen != 0 {
		contentLength = itoa(bodyLen)
	}
	fields := []string{
		verb,
		headers["Content-Encoding"],
		headers["Content-Language"],
		contentLength,
		headers["Content-MD5"],
		headers["Content-Type"],
		headers["Date"],
		headers["If-Modified-Since"],
		headers["If-Match"],
		headers["If-None-Match"],
		headers["If-Unmodified-Since"],
		headers["Range"],
		canonicalHeaders,
		canonicalResource,
	}
	return strings.Join(fields, "\n")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
