// Package rfctime provides the ISO-8601 time formatting and parsing helpers
// the S3 signer uses for its x-amz-date header and credential scope. Azure's
// x-ms-date uses go-autorest/autorest/date directly instead (see DESIGN.md).
// The round-trip Str/Parse pair is the package's general ISO-8601 instant
// representation; the S3 signer is the only importer of this package.
package rfctime

import "time"

// ISO8601Basic is the compact ISO-8601 form used for S3's x-amz-date header
// ("20060102T150405Z").
const ISO8601Basic = "20060102T150405Z"

// ISO8601BasicDate is the date-only portion of ISO8601Basic, used for S3's
// credential scope.
const ISO8601BasicDate = "20060102"

// Time wraps a UTC instant with the round-trip string formatting the
// property tests in spec.md section 8 require.
type Time struct {
	t time.Time
}

// Now returns the current instant. Callers needing determinism should
// construct a Time directly from a known instant instead.
func Now() Time { return Time{t: time.Now().UTC()} }

// FromUnix builds a Time from a Unix timestamp.
func FromUnix(sec int64) Time { return Time{t: time.Unix(sec, 0).UTC()} }

// Parse parses an ISO-8601 instant of the form "2006-01-02T15:04:05Z".
func Parse(s string) (Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Time{}, err
	}
	return Time{t: t.UTC()}, nil
}

// Str renders the canonical ISO-8601 form, "2006-01-02T15:04:05Z".
func (t Time) Str() string {
	return t.t.Format("2006-01-02T15:04:05Z")
}

// Unix returns the Unix timestamp.
func (t Time) Unix() int64 { return t.t.Unix() }

// Sub returns t-other in seconds.
func (t Time) Sub(other Time) int64 {
	return int64(t.t.Sub(other.t).Seconds())
}

// AmzDate renders the ISO8601Basic form used in S3's x-amz-date header.
func (t Time) AmzDate() string { return t.t.Format(ISO8601Basic) }

// AmzDateStamp renders the date-only portion used in S3's credential scope.
func (t Time) AmzDateStamp() string { return t.t.Format(ISO8601BasicDate) }

// Time returns the underlying stdlib time.Time, UTC-normalized.
func (t Time) Time() time.Time { return t.t }
