package awsini

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	doc := `
[default]
aws_access_key_id = AKIDEXAMPLE
aws_secret_access_key = secret

[staging]
aws_access_key_id = AKIDSTAGING
aws_secret_access_key = staging-secret
`
	f, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Section("default")["aws_access_key_id"]; got != "AKIDEXAMPLE" {
		t.Errorf("default access key = %q", got)
	}
	if got := f.Section("staging")["aws_secret_access_key"]; got != "staging-secret" {
		t.Errorf("staging secret = %q", got)
	}
	if f.Section("missing") != nil {
		t.Errorf("expected nil section for missing profile")
	}
}
