// Package threat detects injection and script payloads in field input,
// independent of whatever rule the field carries.
//
// The asymmetry between findings is deliberate: SQL injection patterns are
// treated as attacks and reject the value outright, while script payloads and
// control characters are risky-but-possibly-legitimate free text and only
// reduce the security score.
package threat

import "regexp"

// Report lists everything the scanner found in one value.
type Report struct {
	// Threats are hard findings: any entry rejects the value and forces the
	// security score to zero.
	Threats []string
	// Warnings are soft findings that deduct from the score only.
	Warnings []string
}

// Clean reports whether the scan found nothing at all.
func (r Report) Clean() bool { return len(r.Threats) == 0 && len(r.Warnings) == 0 }

type check struct {
	name    string
	pattern *regexp.Regexp
}

// Checks run in a fixed order: SQL injection first, then script/markup
// injection, then control characters.
var sqlChecks = []check{
	{"sql_union_select", regexp.MustCompile(`(?i)\bunion\b[\s(]+.*\bselect\b`)},
	{"sql_statement", regexp.MustCompile(`(?i)\b(select|insert|update|delete|drop|truncate|alter)\b\s+.*\b(from|into|table|database|where)\b`)},
	{"sql_boolean_injection", regexp.MustCompile(`(?i)\bor\b\s+['"]?\d+['"]?\s*=\s*['"]?\d+`)},
	{"sql_quote_or", regexp.MustCompile(`(?i)['"]\s*or\s*['"]`)},
	{"sql_comment_terminator", regexp.MustCompile(`;\s*(--|#|/\*)`)},
	{"sql_procedure_prefix", regexp.MustCompile(`(?i)\b(xp_|sp_)\w+`)},
}

// Tag patterns also match the HTML-escaped form so scanning still works on
// values the sanitizer has already escaped.
var xssChecks = []check{
	{"xss_script_tag", regexp.MustCompile(`(?i)(<|&lt;)\s*script`)},
	{"xss_javascript_uri", regexp.MustCompile(`(?i)javascript\s*:`)},
	{"xss_event_handler", regexp.MustCompile(`(?i)\bon\w+\s*=`)},
	{"xss_embed_tag", regexp.MustCompile(`(?i)(<|&lt;)\s*(iframe|object|embed)`)},
}

var controlChars = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")

// Scan runs the fixed ordered pattern list against a single value.
func Scan(value string) Report {
	var report Report
	for _, c := range sqlChecks {
		if c.pattern.MatchString(value) {
			report.Threats = append(report.Threats, c.name)
		}
	}
	for _, c := range xssChecks {
		if c.pattern.MatchString(value) {
			report.Warnings = append(report.Warnings, c.name)
		}
	}
	if controlChars.MatchString(value) {
		report.Warnings = append(report.Warnings, "control_characters")
	}
	return report
}
