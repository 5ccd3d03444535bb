package posts

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/google/uuid"

	"github.com/goliatone/go-blog/internal/identity"
)

// Post is a dated article loaded from _posts or _drafts.
type Post struct {
	ID           uuid.UUID      `json:"id"`
	SourcePath   string         `json:"source_path"`
	Title        string         `json:"title"`
	Date         time.Time      `json:"date"`
	Categories   []string       `json:"categories"`
	Tags         []string       `json:"tags"`
	Description  string         `json:"description,omitempty"`
	Author       string         `json:"author,omitempty"`
	Image        string         `json:"image,omitempty"`
	Layout       string         `json:"layout,omitempty"`
	Slug         string         `json:"slug"`
	Permalink    string         `json:"permalink"`
	Pin          bool           `json:"pin,omitempty"`
	Math         bool           `json:"math,omitempty"`
	TOC          bool           `json:"toc"`
	Published    bool           `json:"published"`
	Draft        bool           `json:"draft,omitempty"`
	LastModified time.Time      `json:"last_modified_at,omitzero"`
	ModTime      time.Time      `json:"-"`
	Checksum     string         `json:"checksum"`
	Custom       map[string]any `json:"custom,omitempty"`

	FrontMatter FrontMatter `json:"-"`
	Body        []byte      `json:"-"`
}

// BuildOptions controls how a source file becomes a Post.
type BuildOptions struct {
	Location *time.Location
	Draft    bool
}

// NewPost parses source as a post located at sourcePath. A date missing from
// the front matter is taken from the file name; drafts without either are
// dated by their modification time.
func NewPost(sourcePath string, source []byte, modTime time.Time, opts BuildOptions) (*Post, error) {
	fm, body, err := ParseFrontMatter(source, opts.Location)
	if err != nil {
		return nil, &FileError{Path: sourcePath, Err: err}
	}

	fileDate, fileSlug, dated := ParseFilename(sourcePath, opts.Location)

	post := &Post{
		ID:           identity.PostUUID(sourcePath),
		SourcePath:   sourcePath,
		Title:        fm.Title,
		Date:         fm.Date,
		Categories:   fm.Categories,
		Tags:         fm.Tags,
		Description:  fm.Description,
		Author:       fm.Author,
		Image:        fm.Image,
		Layout:       fm.Layout,
		Pin:          fm.Pin,
		Math:         fm.Math,
		TOC:          fm.TOC,
		Published:    fm.Published,
		Draft:        opts.Draft,
		LastModified: fm.LastModified,
		ModTime:      modTime,
		Checksum:     Checksum(source),
		Custom:       fm.Custom,
		FrontMatter:  fm,
		Body:         body,
	}
	if post.Date.IsZero() && fm.DateText == "" {
		switch {
		case dated:
			post.Date = fileDate
		case opts.Draft && !modTime.IsZero():
			post.Date = modTime.In(locationOrUTC(opts.Location))
		}
	}

	post.Slug = Slugify(firstNonEmpty(fm.Slug, fileSlug, fm.Title))
	return post, nil
}

// Year returns the four digit year used by archives and permalinks.
func (p *Post) Year() string { return p.Date.Format("2006") }

// IsFuture reports whether the post is dated after now.
func (p *Post) IsFuture(now time.Time) bool { return p.Date.After(now) }

// Page is a standalone page such as a navigation tab.
type Page struct {
	ID          uuid.UUID      `json:"id"`
	SourcePath  string         `json:"source_path"`
	Title       string         `json:"title"`
	Slug        string         `json:"slug"`
	Permalink   string         `json:"permalink"`
	Icon        string         `json:"icon,omitempty"`
	Order       int            `json:"order"`
	Layout      string         `json:"layout,omitempty"`
	Description string         `json:"description,omitempty"`
	Checksum    string         `json:"checksum"`
	Custom      map[string]any `json:"custom,omitempty"`
	FrontMatter FrontMatter    `json:"-"`
	Body        []byte         `json:"-"`
}

// NewPage parses a tab page. The slug defaults to the file name.
func NewPage(sourcePath string, source []byte, loc *time.Location) (*Page, error) {
	fm, body, err := ParseFrontMatter(source, loc)
	if err != nil {
		return nil, &FileError{Path: sourcePath, Err: err}
	}
	base := path.Base(sourcePath)
	base = strings.TrimSuffix(base, path.Ext(base))

	pageSlug := Slugify(firstNonEmpty(fm.Slug, base, fm.Title))
	permalink := fm.Permalink
	if permalink == "" {
		permalink = "/" + pageSlug + "/"
	}
	return &Page{
		ID:          identity.PageUUID(sourcePath),
		SourcePath:  sourcePath,
		Title:       fm.Title,
		Slug:        pageSlug,
		Permalink:   permalink,
		Icon:        fm.Icon,
		Order:       fm.Order,
		Layout:      fm.Layout,
		Description: fm.Description,
		Checksum:    Checksum(source),
		Custom:      fm.Custom,
		FrontMatter: fm,
		Body:        body,
	}, nil
}

// Slugify normalizes value into a URL segment.
func Slugify(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if normalized, err := slug.Normalize(value); err == nil && normalized != "" {
		return normalized
	}
	return strings.ToLower(strings.Join(strings.Fields(value), "-"))
}

// Checksum returns the hex SHA-256 digest of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
