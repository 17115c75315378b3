package rfctime

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"1970-01-01T00:00:00Z",
		"2016-03-18T04:24:54Z",
	}
	for _, c := range cases {
		tm, err := Parse(c)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c, err)
		}
		if got := tm.Str(); got != c {
			t.Errorf("round trip: got %q, want %q", got, c)
		}
	}
}

func TestEpoch(t *testing.T) {
	tm, err := Parse("1970-01-01T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if tm.Unix() != 0 {
		t.Errorf("epoch unix = %d, want 0", tm.Unix())
	}
}

func TestDelta(t *testing.T) {
	a, err := Parse("2016-03-18T04:24:54Z")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("2016-03-18T03:14:42Z")
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Sub(b); got != 4212 {
		t.Errorf("delta = %d, want 4212", got)
	}
}

func TestAmzDate(t *testing.T) {
	tm, err := Parse("2016-03-18T04:24:54Z")
	if err != nil {
		t.Fatal(err)
	}
	if got := tm.AmzDate(); got != "20160318T042454Z" {
		t.Errorf("AmzDate() = %q, want 20160318T042454Z", got)
	}
	if got := tm.AmzDateStamp(); got != "20160318" {
		t.Errorf("AmzDateStamp() = %q, want 20160318", got)
	}
}
