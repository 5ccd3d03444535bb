package posts

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultPermalink matches the Chirpy starter.
const DefaultPermalink = "/posts/:title/"

// ResolvePermalink expands pattern for post. A permalink set in the front
// matter wins over the pattern.
func ResolvePermalink(pattern string, post *Post) string {
	if override := strings.TrimSpace(post.FrontMatter.Permalink); override != "" {
		return cleanURLPath(override)
	}
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPermalink
	}

	categories := make([]string, 0, len(post.Categories))
	for _, category := range post.Categories {
		if s := Slugify(category); s != "" {
			categories = append(categories, s)
		}
	}

	replacer := strings.NewReplacer(
		":categories", strings.Join(categories, "/"),
		":title", post.Slug,
		":slug", post.Slug,
		":year", post.Date.Format("2006"),
		":month", post.Date.Format("01"),
		":day", post.Date.Format("02"),
		":output_ext", ".html",
	)
	return cleanURLPath(replacer.Replace(pattern))
}

// AssignPermalinks resolves every post's permalink and reports posts that
// collide on the same URL.
func AssignPermalinks(pattern string, posts []*Post) error {
	owners := make(map[string][]string, len(posts))
	for _, post := range posts {
		post.Permalink = ResolvePermalink(pattern, post)
		owners[post.Permalink] = append(owners[post.Permalink], post.SourcePath)
	}

	var dups []string
	for link, sources := range owners {
		if len(sources) > 1 {
			sort.Strings(sources)
			dups = append(dups, fmt.Sprintf("%s (%s)", link, strings.Join(sources, ", ")))
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	return fmt.Errorf("%w: %s", ErrDuplicatePermalink, strings.Join(dups, "; "))
}

func cleanURLPath(p string) string {
	trailing := strings.HasSuffix(p, "/")
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	out := "/" + strings.Join(kept, "/")
	if trailing && out != "/" {
		out += "/"
	}
	return out
}
