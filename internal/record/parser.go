package record

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
)

// contextFailureSignature marks failures raised by the harness itself
// (application context teardown) rather than by the test under review.
// Rows carrying it never enter the catalog, so aggregate counts only
// cover genuine test failures.
const contextFailureSignature = "RuntimeError: Working outside of application context."

// SummaryLimit is the rune budget for the one-line display summary.
const SummaryLimit = 120

// Skip reasons reported by ParseRow. A reason is diagnostics for the
// caller's log, not an error: a skipped row never aborts a load.
const (
	SkipShortRow         = "missing payload column"
	SkipMalformedPayload = "malformed payload"
	SkipContextFailure   = "application context failure"
)

// ParseRow turns one CSV row into a Record. line is the 1-based row
// ordinal in the input stream and feeds the record id. Column 1 is the
// timestamp, column 2 the JSON payload; extra columns are ignored.
// A non-empty skip reason means the row is excluded. ParseRow never
// fails outright: any of test.source.file, test.name and error.message
// may be missing and default to "", and only a payload that does not
// parse at all causes a skip.
func ParseRow(line int, row []string) (Record, string) {
	if len(row) < 2 {
		return Record{}, SkipShortRow
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(row[1]), &payload); err != nil {
		return Record{}, SkipMalformedPayload
	}
	testFile := lookupString(payload, "test", "source", "file")
	testName := lookupString(payload, "test", "name")
	message := lookupString(payload, "error", "message")
	if strings.Contains(message, contextFailureSignature) {
		return Record{}, SkipContextFailure
	}
	ts := row[0]
	return Record{
		ID:        DeriveID(line, testFile, testName, ts),
		Timestamp: ts,
		TestFile:  testFile,
		TestName:  testName,
		Message:   message,
		Summary:   Summarize(message),
	}, ""
}

// DeriveID computes the stable identity for a row. The line ordinal
// keeps earlier ids untouched when new rows are appended to the
// export; the fnv64a fingerprint over the identifying fields ties the
// id to row content so re-ingesting byte-identical input reproduces
// identical ids.
func DeriveID(line int, testFile, testName, timestamp string) string {
	h := fnv.New64a()
	_, _ = io.WriteString(h, testFile)
	_, _ = h.Write([]byte{0})
	_, _ = io.WriteString(h, testName)
	_, _ = h.Write([]byte{0})
	_, _ = io.WriteString(h, timestamp)
	return fmt.Sprintf("%d-%016x", line, h.Sum64())
}

// Summarize derives the compact list form of a message: its first
// line, cut at SummaryLimit runes with an ellipsis marker. The full
// message is kept on the record for detail views.
func Summarize(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	runes := []rune(line)
	if len(runes) <= SummaryLimit {
		return line
	}
	return string(runes[:SummaryLimit]) + "…"
}

// lookupString walks nested JSON objects by key and returns the string
// leaf, or "" when any step is missing or not the expected shape.
func lookupString(doc map[string]any, path ...string) string {
	cur := any(doc)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		if cur, ok = m[key]; !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
