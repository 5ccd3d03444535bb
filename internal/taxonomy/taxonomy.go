// Package taxonomy groups posts by category, tag and publication month.
package taxonomy

import (
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-blog/internal/posts"
)

// Term is a category or tag with the posts that carry it, newest first.
type Term struct {
	Name  string        `json:"name"`
	Slug  string        `json:"slug"`
	Posts []*posts.Post `json:"-"`
	// Children holds the subcategories seen as the second category of posts
	// filed under this one. Always empty for tags.
	Children []*Term `json:"-"`
}

// Count is the number of posts in the term.
func (t *Term) Count() int { return len(t.Posts) }

// Month groups posts published in one calendar month.
type Month struct {
	Month time.Month    `json:"month"`
	Posts []*posts.Post `json:"-"`
}

// Year groups months newest first.
type Year struct {
	Year   int      `json:"year"`
	Months []*Month `json:"months"`
	Count  int      `json:"count"`
}

// Index is the complete taxonomy of a site.
type Index struct {
	Categories []*Term
	Tags       []*Term
	Archives   []*Year

	categories map[string]*Term
	tags       map[string]*Term
}

// Build indexes list. Terms are keyed by slug so "Django" and "django" share
// a page; the first spelling seen names the term.
func Build(list []*posts.Post) *Index {
	sorted := append([]*posts.Post(nil), list...)
	posts.SortPosts(sorted)

	idx := &Index{
		categories: map[string]*Term{},
		tags:       map[string]*Term{},
	}
	children := map[string]map[string]struct{}{}

	for _, post := range sorted {
		var parent *Term
		for i, name := range post.Categories {
			term := addTerm(idx.categories, name, post)
			if term == nil {
				continue
			}
			switch i {
			case 0:
				parent = term
			case 1:
				if parent != nil && parent.Slug != term.Slug {
					if children[parent.Slug] == nil {
						children[parent.Slug] = map[string]struct{}{}
					}
					children[parent.Slug][term.Slug] = struct{}{}
				}
			}
		}
		for _, name := range post.Tags {
			addTerm(idx.tags, name, post)
		}
	}

	for parentSlug, kids := range children {
		parent := idx.categories[parentSlug]
		for slug := range kids {
			parent.Children = append(parent.Children, idx.categories[slug])
		}
		sortTerms(parent.Children)
	}

	idx.Categories = termList(idx.categories)
	idx.Tags = termList(idx.tags)
	idx.Archives = buildArchives(sorted)
	return idx
}

// Category looks up a category by slug.
func (i *Index) Category(slug string) (*Term, bool) {
	term, ok := i.categories[slug]
	return term, ok
}

// Tag looks up a tag by slug.
func (i *Index) Tag(slug string) (*Term, bool) {
	term, ok := i.tags[slug]
	return term, ok
}

// TopCategories returns categories that never appear as a subcategory.
func (i *Index) TopCategories() []*Term {
	nested := map[string]struct{}{}
	for _, term := range i.Categories {
		for _, child := range term.Children {
			nested[child.Slug] = struct{}{}
		}
	}
	out := make([]*Term, 0, len(i.Categories))
	for _, term := range i.Categories {
		if _, ok := nested[term.Slug]; !ok {
			out = append(out, term)
		}
	}
	return out
}

// TrendingTags returns up to limit tags ordered by post count, then name.
func (i *Index) TrendingTags(limit int) []*Term {
	out := append([]*Term(nil), i.Tags...)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Count() > out[b].Count()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func addTerm(terms map[string]*Term, name string, post *posts.Post) *Term {
	name = strings.TrimSpace(name)
	slug := posts.Slugify(name)
	if slug == "" {
		return nil
	}
	term, ok := terms[slug]
	if !ok {
		term = &Term{Name: name, Slug: slug}
		terms[slug] = term
	}
	if n := len(term.Posts); n == 0 || term.Posts[n-1] != post {
		term.Posts = append(term.Posts, post)
	}
	return term
}

func termList(terms map[string]*Term) []*Term {
	out := make([]*Term, 0, len(terms))
	for _, term := range terms {
		out = append(out, term)
	}
	sortTerms(out)
	return out
}

func sortTerms(terms []*Term) {
	sort.Slice(terms, func(i, j int) bool {
		a, b := strings.ToLower(terms[i].Name), strings.ToLower(terms[j].Name)
		if a != b {
			return a < b
		}
		return terms[i].Slug < terms[j].Slug
	})
}

func buildArchives(sorted []*posts.Post) []*Year {
	var years []*Year
	for _, post := range sorted {
		y, m := post.Date.Year(), post.Date.Month()
		if len(years) == 0 || years[len(years)-1].Year != y {
			years = append(years, &Year{Year: y})
		}
		year := years[len(years)-1]
		if len(year.Months) == 0 || year.Months[len(year.Months)-1].Month != m {
			year.Months = append(year.Months, &Month{Month: m})
		}
		month := year.Months[len(year.Months)-1]
		month.Posts = append(month.Posts, post)
		year.Count++
	}
	return years
}
