package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-blog/internal/markdown"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/taxonomy"
)

// BuildContext is everything a build knows once content is loaded, validated
// and converted to HTML.
type BuildContext struct {
	GeneratedAt time.Time
	Options     BuildOptions
	// Posts are newest first.
	Posts    []*PostData
	Pages    []*PageData
	Taxonomy *taxonomy.Index

	byPost map[*posts.Post]*PostData
}

// PostData is a published post with its rendered body.
type PostData struct {
	Post        *posts.Post
	HTML        []byte
	Excerpt     string
	Headings    []markdown.Heading
	ReadingTime int
	// URL includes the site baseurl.
	URL string
}

// PageData is a tab page with its rendered body.
type PageData struct {
	Page *posts.Page
	HTML []byte
	URL  string
}

func (s *service) loadContext(ctx context.Context, opts BuildOptions) (*BuildContext, error) {
	loaded, err := s.deps.Loader.LoadPosts(ctx, posts.LoadOptions{Drafts: opts.Drafts})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	pages, err := s.deps.Loader.LoadPages(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	now := s.now()
	published := posts.Filter(loaded, now, opts.Future, opts.Unpublished)
	posts.SortPosts(published)
	s.logger.Debug("generator.posts.loaded",
		"loaded", len(loaded),
		"published", len(published),
		"pages", len(pages),
	)

	index := taxonomy.Build(published)
	if err := s.validate(published, pages, index); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	postData, err := s.renderPosts(ctx, published)
	if err != nil {
		return nil, err
	}
	pageData, err := s.renderTabs(ctx, pages)
	if err != nil {
		return nil, err
	}

	buildCtx := &BuildContext{
		GeneratedAt: now,
		Options:     opts,
		Posts:       postData,
		Pages:       pageData,
		Taxonomy:    index,
		byPost:      make(map[*posts.Post]*PostData, len(postData)),
	}
	for _, pd := range postData {
		buildCtx.byPost[pd.Post] = pd
	}
	return buildCtx, nil
}

// validate checks every post and page and makes sure no two outputs share a
// URL, including the routes the generator reserves or renders for itself.
// Tabs may take over the categories, tags and archives listings.
func (s *service) validate(published []*posts.Post, pages []*posts.Page, index *taxonomy.Index) error {
	var errs []error
	if err := posts.ValidateAll(published, s.cfg.Permalink, s.deps.Schema); err != nil {
		errs = append(errs, err)
	}

	generated := generatedRoutes(index)
	owners := map[string]string{}
	claim := func(route, source string, tab bool) {
		if owner, ok := generated[buildOutputPath(route)]; ok && !(tab && isListingRoute(route)) {
			errs = append(errs, fmt.Errorf("%w: %s (%s, %s)", posts.ErrDuplicatePermalink, route, owner, source))
			return
		}
		if isReservedRoute(route) {
			errs = append(errs, fmt.Errorf("%w: %s (%s)", errReservedPermalink, route, source))
			return
		}
		owners[buildOutputPath(route)] = source
	}

	for _, post := range published {
		if post.Permalink == "" {
			continue
		}
		// post against post clashes are reported by ValidateAll
		if _, ok := owners[buildOutputPath(post.Permalink)]; ok {
			continue
		}
		claim(post.Permalink, post.SourcePath, false)
	}
	for _, page := range pages {
		if err := posts.ValidatePage(page); err != nil {
			errs = append(errs, err)
		}
		if owner, ok := owners[buildOutputPath(page.Permalink)]; ok {
			errs = append(errs, fmt.Errorf("%w: %s (%s, %s)", posts.ErrDuplicatePermalink, page.Permalink, owner, page.SourcePath))
			continue
		}
		claim(page.Permalink, page.SourcePath, true)
	}
	return errors.Join(errs...)
}

// generatedRoutes maps the output files of the listing and taxonomy pages to
// a description of what renders them.
func generatedRoutes(index *taxonomy.Index) map[string]string {
	routes := map[string]string{
		buildOutputPath(categoriesRoute): "generated categories index",
		buildOutputPath(tagsRoute):       "generated tags index",
		buildOutputPath(archivesRoute):   "generated archives",
	}
	if index == nil {
		return routes
	}
	for _, term := range index.Categories {
		routes[buildOutputPath(categoryRoute(term.Slug))] = fmt.Sprintf("generated category %q", term.Name)
	}
	for _, term := range index.Tags {
		routes[buildOutputPath(tagRoute(term.Slug))] = fmt.Sprintf("generated tag %q", term.Name)
	}
	return routes
}

func isListingRoute(route string) bool {
	switch buildOutputPath(route) {
	case buildOutputPath(categoriesRoute), buildOutputPath(tagsRoute), buildOutputPath(archivesRoute):
		return true
	}
	return false
}

func isReservedRoute(route string) bool {
	switch route {
	case "/", "/404.html", "/feed.xml", "/sitemap.xml", "/robots.txt":
		return true
	}
	if strings.HasPrefix(route, "/page") {
		rest := strings.Trim(strings.TrimPrefix(route, "/page"), "/")
		if rest != "" && strings.Trim(rest, "0123456789") == "" {
			return true
		}
	}
	return strings.HasPrefix(route, "/assets/")
}

func (s *service) renderPosts(ctx context.Context, list []*posts.Post) ([]*PostData, error) {
	out := make([]*PostData, len(list))
	indexes := make([]int, len(list))
	for i := range indexes {
		indexes[i] = i
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	poolErr := runPool(ctx, s.effectiveWorkerCount(len(list)), indexes, func(_ context.Context, i int) {
		post := list[i]
		html, err := s.deps.Parser.Parse(post.Body)
		if err != nil {
			mu.Lock()
			errs = append(errs, &posts.FileError{Path: post.SourcePath, Err: fmt.Errorf("render markdown: %w", err)})
			mu.Unlock()
			return
		}
		excerpt := strings.TrimSpace(post.Description)
		if excerpt == "" {
			excerpt = markdown.Excerpt(html, s.cfg.ExcerptWords)
		}
		var headings []markdown.Heading
		if post.TOC {
			headings = markdown.Headings(html)
		}
		out[i] = &PostData{
			Post:        post,
			HTML:        html,
			Excerpt:     excerpt,
			Headings:    headings,
			ReadingTime: markdown.ReadingTime(html),
			URL:         withBase(s.cfg.Site.BaseURL, post.Permalink),
		}
	})
	if poolErr != nil {
		return nil, poolErr
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (s *service) renderTabs(ctx context.Context, pages []*posts.Page) ([]*PageData, error) {
	out := make([]*PageData, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		html, err := s.deps.Parser.Parse(page.Body)
		if err != nil {
			return nil, &posts.FileError{Path: page.SourcePath, Err: fmt.Errorf("render markdown: %w", err)}
		}
		out = append(out, &PageData{
			Page: page,
			HTML: html,
			URL:  withBase(s.cfg.Site.BaseURL, page.Permalink),
		})
	}
	return out, nil
}

func (b *BuildContext) postData(post *posts.Post) *PostData {
	if b == nil {
		return nil
	}
	return b.byPost[post]
}
