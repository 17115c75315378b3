package s3

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/arbiter-go/storage/rfctime"
)

// Credentials is the access/secret/session-token triple the signer signs
// with, sourced by the credential chain in creds.go.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// signRequest stamps headers (in place) with x-amz-date, x-amz-content-sha256,
// an optional x-amz-security-token, and Authorization, per spec.md section
// 4.5's six-step V4 signature.
func signRequest(method, uri string, query map[string]string, headers map[string]string, body []byte, region string, now time.Time, creds Credentials) {
	ts := rfctime.FromUnix(now.Unix())
	amzDate := ts.AmzDate()
	dateStamp := ts.AmzDateStamp()
	payloadHash := hexSHA256(body)

	headers["x-amz-date"] = amzDate
	headers["x-amz-content-sha256"] = payloadHash
	if creds.SessionToken != "" {
		headers["x-amz-security-token"] = creds.SessionToken
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(headers)
	canonicalQuery := canonicalizeQuery(query)
	canonicalRequest := strings.Join([]string{
		method,
		canonicalURI(uri),
		canonicalQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := dateStamp + "/" + region + "/s3/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signingKey := deriveSigningKey(creds.SecretAccessKey, dateStamp, region)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	headers["Authorization"] = "AWS4-HMAC-SHA256 Credential=" + creds.AccessKeyID + "/" + scope +
		", SignedHeaders=" + signedHeaders + ", Signature=" + signature
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func deriveSigningKey(secret, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, "s3")
	return hmacSHA256(kService, "aws4_request")
}

// canonicalURI path-sanitizes uri preserving "/" segments, percent-encoding
// each segment independently.
func canonicalURI(uri string) string {
	if uri == "" {
		return "/"
	}
	segments := strings.Split(uri, "/")
	for i, seg := range segments {
		segments[i] = encodePathSegment(seg)
	}
	return strings.Join(segments, "/")
}

func encodePathSegment(seg string) string {
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if isUnreserved(c) {
			b.WriteByte(c)
		} else {
			b.WriteString("%")
			b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func canonicalizeQuery(query map[string]string) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(query[k]))
	}
	return strings.Join(parts, "&")
}

func canonicalizeHeaders(headers map[string]string) (canonical, signed string) {
	keys := make([]string, 0, len(headers))
	lower := make(map[string]string, len(headers))
	for k, v := range headers {
		lk := strings.ToLower(k)
		keys = append(keys, lk)
		lower[lk] = strings.TrimSpace(v)
	}
	sort.Strings(keys)
	var cb, sb strings.Builder
	for i, k := range keys {
		cb.WriteString(k)
		cb.WriteByte(':')
		cb.WriteString(lower[k])
		cb.WriteByte('\n')
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(k)
	}
	return cb.String(), sb.String()
}
