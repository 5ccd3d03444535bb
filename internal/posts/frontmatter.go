package posts

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/araddon/dateparse"
)

// ErrMissingFrontMatter is returned for files without a front matter block.
var ErrMissingFrontMatter = errors.New("posts: front matter block not found")

// FrontMatter is the metadata block of a post or page. Known keys are lifted
// into fields; every key, known or not, stays available in Raw.
type FrontMatter struct {
	Title        string
	Date         time.Time
	Categories   []string
	Tags         []string
	Description  string
	Author       string
	Image        string
	Layout       string
	Permalink    string
	Slug         string
	Icon         string
	Order        int
	Pin          bool
	Math         bool
	TOC          bool
	Published    bool
	LastModified time.Time

	// DateText keeps the original date value when it could not be parsed.
	DateText string

	Custom map[string]any
	Raw    map[string]any
}

var knownKeys = map[string]struct{}{
	"title": {}, "date": {}, "categories": {}, "category": {}, "tags": {},
	"description": {}, "author": {}, "image": {}, "layout": {}, "permalink": {},
	"slug": {}, "icon": {}, "order": {}, "pin": {}, "math": {}, "toc": {},
	"published": {}, "last_modified_at": {},
}

// ParseFrontMatter splits source into metadata and Markdown body. Dates
// without an explicit offset are read in loc.
func ParseFrontMatter(source []byte, loc *time.Location) (FrontMatter, []byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw := map[string]any{}
	body, err := frontmatter.MustParse(bytes.NewReader(source), &raw)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return FrontMatter{}, nil, ErrMissingFrontMatter
		}
		return FrontMatter{}, nil, fmt.Errorf("posts: parse front matter: %w", err)
	}
	raw = normalizeMap(raw)

	fm := FrontMatter{
		Title:       strings.TrimSpace(stringValue(raw["title"])),
		Categories:  stringList(raw["categories"]),
		Tags:        stringList(raw["tags"]),
		Description: strings.TrimSpace(stringValue(raw["description"])),
		Author:      strings.TrimSpace(stringValue(raw["author"])),
		Image:       imageValue(raw["image"]),
		Layout:      strings.TrimSpace(stringValue(raw["layout"])),
		Permalink:   strings.TrimSpace(stringValue(raw["permalink"])),
		Slug:        strings.TrimSpace(stringValue(raw["slug"])),
		Icon:        strings.TrimSpace(stringValue(raw["icon"])),
		Order:       intValue(raw["order"]),
		Pin:         boolValue(raw["pin"], false),
		Math:        boolValue(raw["math"], false),
		TOC:         boolValue(raw["toc"], true),
		Published:   boolValue(raw["published"], true),
		Raw:         raw,
		Custom:      map[string]any{},
	}
	if len(fm.Categories) == 0 {
		fm.Categories = stringList(raw["category"])
	}

	if value, ok := raw["date"]; ok && value != nil {
		ts, err := parseTime(value, loc)
		if err != nil {
			fm.DateText = stringValue(value)
		} else {
			fm.Date = ts
		}
	}
	if value, ok := raw["last_modified_at"]; ok && value != nil {
		if ts, err := parseTime(value, loc); err == nil {
			fm.LastModified = ts
		}
	}

	for key, value := range raw {
		if _, known := knownKeys[key]; !known {
			fm.Custom[key] = value
		}
	}
	return fm, body, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate reads the date formats accepted in front matter, falling back to
// a lenient parser for anything else.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("posts: empty date")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	ts, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("posts: invalid date %q: %w", value, err)
	}
	return ts, nil
}

func parseTime(value any, loc *time.Location) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		return ParseDate(v, loc)
	default:
		return ParseDate(fmt.Sprint(v), loc)
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// imageValue accepts both `image: path` and Chirpy's `image: {path: ...}`.
func imageValue(value any) string {
	if m, ok := value.(map[string]any); ok {
		return strings.TrimSpace(stringValue(m["path"]))
	}
	return strings.TrimSpace(stringValue(value))
}

func boolValue(value any, fallback bool) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func intValue(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

// stringList reads a YAML sequence or a space separated string, dropping
// blanks and duplicates while keeping the first-seen order.
func stringList(value any) []string {
	var items []string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		items = strings.Fields(v)
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			items = append(items, stringValue(item))
		}
	case []string:
		items = v
	default:
		items = []string{stringValue(v)}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeMap converts the map[any]any values produced by yaml.v2 into
// map[string]any so the result can be JSON encoded.
func normalizeMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = normalizeValue(value)
	}
	return out
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeValue(item)
		}
		return out
	case map[string]any:
		return normalizeMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func cloneRaw(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	return maps.Clone(raw)
}
