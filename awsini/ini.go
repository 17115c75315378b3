// Package awsini implements a minimal INI reader for AWS-style shared
// credentials files (section -> key -> value). No third-party INI library
// appears anywhere in the example corpus this module was grounded on, and
// the format is small enough (section headers plus "key = value" lines)
// that the standard library's bufio.Scanner is the idiomatic tool; see
// DESIGN.md for the full justification.
package awsini

import (
	"bufio"
	"io"
	"strings"
)

// File is a parsed INI document: section name -> key -> value. The default,
// un-sectioned region is keyed by the empty string.
type File map[string]map[string]string

// Section returns the key/value map for name, or nil if the section is
// absent.
func (f File) Section(name string) map[string]string {
	return f[name]
}

// Parse reads an INI document from r.
func Parse(r io.Reader) (File, error) {
	file := File{}
	section := ""
	file[section] = map[string]string{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			if _, ok := file[section]; !ok {
				file[section] = map[string]string{}
			}
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		file[section][key] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return file, nil
}
