package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// versaLexLayout is how VersaLex writes dates in Harmony.xml, so a time copied
// out of the log can be pasted into a query as is.
const versaLexLayout = "2006/01/02 15:04:05"

// ParseTimeFlexible accepts RFC 3339, epoch milliseconds or a VersaLex log
// date. VersaLex dates carry no zone and are read in loc.
func ParseTimeFlexible(timeStr string, loc *time.Location) (time.Time, error) {
	timeStr = strings.TrimSpace(timeStr)
	if t, err := time.Parse(time.RFC3339Nano, timeStr); err == nil {
		return t.UTC(), nil
	}
	if ms, err := strconv.ParseInt(timeStr, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(versaLexLayout, timeStr, loc); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
}

// SplitList splits a comma separated query value, dropping empty items.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
