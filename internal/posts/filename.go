package posts

import (
	"path"
	"regexp"
	"strings"
	"time"
)

var postFilename = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// ParseFilename splits a Jekyll post file name (YYYY-MM-DD-title.md) into its
// date, read at midnight in loc, and the slug part. ok is false when the name
// does not carry a valid date prefix.
func ParseFilename(name string, loc *time.Location) (date time.Time, slug string, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	match := postFilename.FindStringSubmatch(base)
	if match == nil {
		return time.Time{}, base, false
	}
	ts, err := time.ParseInLocation("2006-01-02", match[1], loc)
	if err != nil {
		return time.Time{}, base, false
	}
	return ts, match[2], true
}
