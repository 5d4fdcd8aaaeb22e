// Package secrets detects known placeholder credentials left in the
// operator's .env and configuration.yml.
//
// Detection is an exact substring comparison against a declared list of
// placeholder literals, not a secret-strength check. The list is the
// single place to update when the sample files change.
package secrets

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// Placeholders are the example values shipped in the sample configuration
// files. Any of them appearing in a live file means the operator has not
// filled in a real value yet.
var Placeholders = []string{
	"your_openai_api_key_here",
	"<YOUR_API_KEY>",
	"your-api-key",
	"sk-your-key-here",
	"<YOUR_PASSWORD>",
	"changeme",
}

// Accepted are sample defaults deliberately allowed through. The bundled
// compose file provisions PostgreSQL with memmachine_password, so flagging
// it would warn on every default install.
var Accepted = []string{
	"memmachine_password",
}

// MaxLineSize caps a single line. Inline certificates and base64 blobs in
// configuration.yml easily exceed bufio's 64 KiB default.
const MaxLineSize = 1 << 20

// Finding is one placeholder occurrence.
type Finding struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	Placeholder string `json:"placeholder"`
}

// String formats the finding as file:line.
func (f Finding) String() string {
	return fmt.Sprintf("%s:%d contains placeholder %q", f.File, f.Line, f.Placeholder)
}

// Scan reports every placeholder occurrence in data. Lines starting with
// '#' are comments and skipped. Accepted values are removed from a line
// before matching, so "changeme" inside an accepted literal is not flagged.
// A line longer than MaxLineSize stops the scan with an error; the findings
// collected up to that point are still returned.
func Scan(name string, data []byte) ([]Finding, error) {
	var findings []Finding

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, ok := range Accepted {
			line = strings.ReplaceAll(line, ok, "")
		}
		for _, p := range Placeholders {
			if strings.Contains(line, p) {
				findings = append(findings, Finding{File: name, Line: lineNo, Placeholder: p})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return findings, fmt.Errorf("failed to scan %s after line %d: %w", name, lineNo, err)
	}

	return findings, nil
}

// ScanFiles reads and scans each path. Missing files are skipped.
func ScanFiles(paths ...string) ([]Finding, error) {
	var all []Finding
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		findings, err := Scan(p, data)
		if err != nil {
			return nil, err
		}
		all = append(all, findings...)
	}
	return all, nil
}
