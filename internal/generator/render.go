package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/taxonomy"
)

// Layout names resolved through the theme layers.
const (
	LayoutHome       = "home"
	LayoutPost       = "post"
	LayoutPage       = "page"
	LayoutCategories = "categories"
	LayoutCategory   = "category"
	LayoutTags       = "tags"
	LayoutTag        = "tag"
	LayoutArchives   = "archives"
	LayoutNotFound   = "404"
)

type pageKind string

const (
	kindHome       pageKind = "home"
	kindPost       pageKind = "post"
	kindTab        pageKind = "tab"
	kindCategories pageKind = "categories"
	kindCategory   pageKind = "category"
	kindTags       pageKind = "tags"
	kindTag        pageKind = "tag"
	kindArchives   pageKind = "archives"
	kindNotFound   pageKind = "404"
)

// RenderedPage captures a rendered route ready to be written.
type RenderedPage struct {
	Route        string
	Output       string
	Layout       string
	Kind         string
	Source       string
	HTML         string
	Checksum     string
	LastModified time.Time
	Sitemap      bool
	Duration     time.Duration
}

// RenderDiagnostic records the outcome of rendering a single route.
type RenderDiagnostic struct {
	Route    string
	Layout   string
	Source   string
	Duration time.Duration
	Err      error
}

type pageJob struct {
	route        string
	layout       string
	kind         pageKind
	source       string
	title        string
	description  string
	lastModified time.Time
	sitemap      bool
	data         map[string]any
}

type renderOutcome struct {
	page       *RenderedPage
	diagnostic RenderDiagnostic
	err        error
}

// buildJobs lists every HTML route of the site.
func (s *service) buildJobs(buildCtx *BuildContext) []pageJob {
	var jobs []pageJob
	jobs = append(jobs, s.homeJobs(buildCtx)...)
	jobs = append(jobs, s.postJobs(buildCtx)...)

	claimed := map[string]struct{}{}
	for _, pd := range buildCtx.Pages {
		job := s.tabJob(buildCtx, pd)
		claimed[job.route] = struct{}{}
		jobs = append(jobs, job)
	}

	builtins := []struct {
		route  string
		layout string
		kind   pageKind
		title  string
	}{
		{categoriesRoute, LayoutCategories, kindCategories, "Categories"},
		{tagsRoute, LayoutTags, kindTags, "Tags"},
		{archivesRoute, LayoutArchives, kindArchives, "Archives"},
	}
	for _, b := range builtins {
		if _, ok := claimed[b.route]; ok {
			continue
		}
		job := pageJob{
			route:   b.route,
			layout:  b.layout,
			kind:    b.kind,
			title:   b.title,
			sitemap: true,
		}
		job.data = s.listingData(buildCtx, b.kind)
		jobs = append(jobs, job)
	}

	for _, term := range buildCtx.Taxonomy.Categories {
		jobs = append(jobs, s.termJob(buildCtx, term, categoryRoute(term.Slug), LayoutCategory, kindCategory))
	}
	for _, term := range buildCtx.Taxonomy.Tags {
		jobs = append(jobs, s.termJob(buildCtx, term, tagRoute(term.Slug), LayoutTag, kindTag))
	}

	jobs = append(jobs, pageJob{
		route:  "/404.html",
		layout: LayoutNotFound,
		kind:   kindNotFound,
		title:  "Page Not Found",
		data:   map[string]any{},
	})
	return jobs
}

// homeJobs paginates the home listing with pinned posts first.
func (s *service) homeJobs(buildCtx *BuildContext) []pageJob {
	ordered := make([]*PostData, 0, len(buildCtx.Posts))
	for _, pd := range buildCtx.Posts {
		if pd.Post.Pin {
			ordered = append(ordered, pd)
		}
	}
	for _, pd := range buildCtx.Posts {
		if !pd.Post.Pin {
			ordered = append(ordered, pd)
		}
	}

	pages := paginate(ordered, s.cfg.Paginate)
	jobs := make([]pageJob, 0, len(pages))
	for i, chunk := range pages {
		number := i + 1
		paginator := map[string]any{
			"page":        number,
			"per_page":    s.cfg.Paginate,
			"total_pages": len(pages),
			"total_posts": len(ordered),
			"posts":       s.summaries(chunk),
		}
		if number > 1 {
			paginator["previous_url"] = withBase(s.cfg.Site.BaseURL, homeRoute(number-1))
		}
		if number < len(pages) {
			paginator["next_url"] = withBase(s.cfg.Site.BaseURL, homeRoute(number+1))
		}
		title := ""
		if number > 1 {
			title = fmt.Sprintf("Page %d", number)
		}
		jobs = append(jobs, pageJob{
			route:   homeRoute(number),
			layout:  LayoutHome,
			kind:    kindHome,
			title:   title,
			sitemap: true,
			data:    map[string]any{"paginator": paginator},
		})
	}
	return jobs
}

func (s *service) postJobs(buildCtx *BuildContext) []pageJob {
	jobs := make([]pageJob, 0, len(buildCtx.Posts))
	for i, pd := range buildCtx.Posts {
		post := pd.Post
		data := s.postDetail(pd)
		// Posts are newest first: the previous post is the older one.
		if i+1 < len(buildCtx.Posts) {
			data["previous"] = s.postLink(buildCtx.Posts[i+1])
		}
		if i > 0 {
			data["next"] = s.postLink(buildCtx.Posts[i-1])
		}
		lastModified := post.LastModified
		if lastModified.IsZero() {
			lastModified = post.Date
		}
		jobs = append(jobs, pageJob{
			route:        post.Permalink,
			layout:       s.resolveLayout(post.Layout, LayoutPost),
			kind:         kindPost,
			source:       post.SourcePath,
			title:        post.Title,
			description:  pd.Excerpt,
			lastModified: lastModified,
			sitemap:      true,
			data: map[string]any{
				"post":    data,
				"content": string(pd.HTML),
			},
		})
	}
	return jobs
}

// tabJob renders a tab page. Tabs that use a listing layout get the matching
// listing data so archives, categories and tags can be driven from _tabs.
func (s *service) tabJob(buildCtx *BuildContext, pd *PageData) pageJob {
	page := pd.Page
	layout := s.resolveLayout(page.Layout, LayoutPage)
	data := map[string]any{"content": string(pd.HTML)}
	switch layout {
	case LayoutCategories:
		for k, v := range s.listingData(buildCtx, kindCategories) {
			data[k] = v
		}
	case LayoutTags:
		for k, v := range s.listingData(buildCtx, kindTags) {
			data[k] = v
		}
	case LayoutArchives:
		for k, v := range s.listingData(buildCtx, kindArchives) {
			data[k] = v
		}
	}
	return pageJob{
		route:       page.Permalink,
		layout:      layout,
		kind:        kindTab,
		source:      page.SourcePath,
		title:       page.Title,
		description: page.Description,
		sitemap:     true,
		data:        data,
	}
}

func (s *service) termJob(buildCtx *BuildContext, term *taxonomy.Term, route, layout string, kind pageKind) pageJob {
	label := "Category"
	if kind == kindTag {
		label = "Tag"
	}
	return pageJob{
		route:   route,
		layout:  layout,
		kind:    kind,
		title:   label + ": " + term.Name,
		sitemap: true,
		data: map[string]any{
			"term": map[string]any{
				"name":  term.Name,
				"slug":  term.Slug,
				"url":   withBase(s.cfg.Site.BaseURL, route),
				"count": term.Count(),
				"posts": s.summaries(s.termPosts(buildCtx, term)),
			},
		},
	}
}

func (s *service) listingData(buildCtx *BuildContext, kind pageKind) map[string]any {
	switch kind {
	case kindCategories:
		return map[string]any{"terms": s.termList(buildCtx.Taxonomy.TopCategories(), categoryRoute)}
	case kindTags:
		return map[string]any{"terms": s.termList(buildCtx.Taxonomy.Tags, tagRoute)}
	case kindArchives:
		years := make([]map[string]any, 0, len(buildCtx.Taxonomy.Archives))
		for _, year := range buildCtx.Taxonomy.Archives {
			var list []*PostData
			for _, month := range year.Months {
				list = append(list, s.termPostsFrom(buildCtx, month.Posts)...)
			}
			years = append(years, map[string]any{
				"year":  year.Year,
				"count": year.Count,
				"posts": s.summaries(list),
			})
		}
		return map[string]any{"archives": years}
	}
	return map[string]any{}
}

func (s *service) termList(terms []*taxonomy.Term, route func(string) string) []map[string]any {
	out := make([]map[string]any, 0, len(terms))
	for _, term := range terms {
		entry := map[string]any{
			"name":  term.Name,
			"slug":  term.Slug,
			"url":   withBase(s.cfg.Site.BaseURL, route(term.Slug)),
			"count": term.Count(),
		}
		if len(term.Children) > 0 {
			entry["children"] = s.termList(term.Children, route)
		}
		out = append(out, entry)
	}
	return out
}

func (s *service) termPosts(buildCtx *BuildContext, term *taxonomy.Term) []*PostData {
	return s.termPostsFrom(buildCtx, term.Posts)
}

func (s *service) termPostsFrom(buildCtx *BuildContext, list []*posts.Post) []*PostData {
	out := make([]*PostData, 0, len(list))
	for _, post := range list {
		if pd := buildCtx.postData(post); pd != nil {
			out = append(out, pd)
		}
	}
	return out
}

func (s *service) summaries(list []*PostData) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, pd := range list {
		out = append(out, s.postSummary(pd))
	}
	return out
}

func (s *service) postSummary(pd *PostData) map[string]any {
	post := pd.Post
	return map[string]any{
		"title":       post.Title,
		"url":         pd.URL,
		"date":        post.Date,
		"pin":         post.Pin,
		"description": post.Description,
		"excerpt":     pd.Excerpt,
		"categories":  s.termLinks(post.Categories, categoryRoute),
		"tags":        s.termLinks(post.Tags, tagRoute),
	}
}

func (s *service) postDetail(pd *PostData) map[string]any {
	post := pd.Post
	detail := s.postSummary(pd)
	detail["author"] = post.Author
	detail["image"] = post.Image
	detail["math"] = post.Math
	detail["toc"] = post.TOC
	detail["headings"] = pd.Headings
	detail["reading_time"] = pd.ReadingTime
	detail["custom"] = post.Custom
	if !post.LastModified.IsZero() {
		detail["last_modified_at"] = post.LastModified
	}
	return detail
}

func (s *service) postLink(pd *PostData) map[string]any {
	return map[string]any{"title": pd.Post.Title, "url": pd.URL}
}

func (s *service) termLinks(names []string, route func(string) string) []map[string]any {
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		slug := posts.Slugify(name)
		if slug == "" {
			continue
		}
		out = append(out, map[string]any{
			"name": name,
			"url":  withBase(s.cfg.Site.BaseURL, route(slug)),
		})
	}
	return out
}

// resolveLayout prefers the front matter layout when some layer provides it.
func (s *service) resolveLayout(requested, fallback string) string {
	requested = strings.TrimSpace(requested)
	if requested != "" && requested != "default" && s.deps.Renderer.Has(requested) {
		return requested
	}
	return fallback
}

func (s *service) siteData(buildCtx *BuildContext) map[string]any {
	site := s.cfg.Site
	tabs := make([]map[string]any, 0, len(buildCtx.Pages))
	for _, pd := range buildCtx.Pages {
		tabs = append(tabs, map[string]any{
			"title": pd.Page.Title,
			"url":   pd.URL,
			"icon":  pd.Page.Icon,
		})
	}
	return map[string]any{
		"title":         site.Title,
		"tagline":       site.Tagline,
		"description":   site.Description,
		"url":           site.SiteURL(),
		"baseurl":       site.BaseURL,
		"author":        site.Author,
		"lang":          site.Lang,
		"feed":          s.cfg.GenerateFeed,
		"search":        s.cfg.GenerateSearch,
		"tabs":          tabs,
		"posts_count":   len(buildCtx.Posts),
		"trending_tags": s.trendingTags(buildCtx),
	}
}

// trendingTags lists the most used tags for the sidebar.
func (s *service) trendingTags(buildCtx *BuildContext) []map[string]any {
	if buildCtx.Taxonomy == nil {
		return nil
	}
	terms := buildCtx.Taxonomy.TrendingTags(trendingTagLimit)
	out := make([]map[string]any, 0, len(terms))
	for _, term := range terms {
		out = append(out, map[string]any{
			"name":  term.Name,
			"slug":  term.Slug,
			"count": term.Count(),
			"url":   withBase(s.cfg.Site.BaseURL, tagRoute(term.Slug)),
		})
	}
	return out
}

// renderPages executes every job on the worker pool.
func (s *service) renderPages(ctx context.Context, buildCtx *BuildContext, jobs []pageJob) ([]RenderedPage, []RenderDiagnostic, error) {
	site := s.siteData(buildCtx)
	build := map[string]any{
		"generated_at": buildCtx.GeneratedAt,
		"year":         buildCtx.GeneratedAt.Year(),
	}

	var (
		mu          sync.Mutex
		pages       []RenderedPage
		diagnostics []RenderDiagnostic
		errs        []error
	)
	collect := func(outcome renderOutcome) {
		mu.Lock()
		defer mu.Unlock()
		diagnostics = append(diagnostics, outcome.diagnostic)
		if outcome.err != nil {
			errs = append(errs, outcome.err)
			return
		}
		if outcome.page != nil {
			pages = append(pages, *outcome.page)
		}
	}

	poolErr := runPool(ctx, s.effectiveWorkerCount(len(jobs)), jobs, func(_ context.Context, job pageJob) {
		collect(s.renderJob(job, site, build))
	})
	if poolErr != nil {
		return nil, diagnostics, poolErr
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Route < pages[j].Route })
	sort.Slice(diagnostics, func(i, j int) bool { return diagnostics[i].Route < diagnostics[j].Route })
	if len(errs) > 0 {
		return nil, diagnostics, errors.Join(errs...)
	}
	return pages, diagnostics, nil
}

func (s *service) renderJob(job pageJob, site, build map[string]any) renderOutcome {
	start := time.Now()
	output := buildOutputPath(job.route)
	url := withBase(s.cfg.Site.BaseURL, job.route)

	data := make(map[string]any, len(job.data)+3)
	for k, v := range job.data {
		data[k] = v
	}
	data["site"] = site
	data["build"] = build
	data["page"] = map[string]any{
		"title":       job.title,
		"description": job.description,
		"url":         url,
		"canonical":   s.cfg.Site.SiteURL() + job.route,
		"layout":      job.layout,
		"kind":        string(job.kind),
	}

	logger := logging.WithPostContext(s.logger, job.source, output)
	html, err := s.deps.Renderer.Render(job.layout, data)
	duration := time.Since(start)
	diagnostic := RenderDiagnostic{
		Route:    job.route,
		Layout:   job.layout,
		Source:   job.source,
		Duration: duration,
	}
	if err != nil {
		err = fmt.Errorf("generator: render %s with layout %q: %w", job.route, job.layout, err)
		diagnostic.Err = err
		logger.Error("generator.render.failed", "error", err)
		return renderOutcome{diagnostic: diagnostic, err: err}
	}
	logger.Debug("generator.render.page", "layout", job.layout, "duration", duration)

	return renderOutcome{
		page: &RenderedPage{
			Route:        job.route,
			Output:       output,
			Layout:       job.layout,
			Kind:         string(job.kind),
			Source:       job.source,
			HTML:         html,
			Checksum:     computeHash([]byte(html)),
			LastModified: job.lastModified,
			Sitemap:      job.sitemap,
			Duration:     duration,
		},
		diagnostic: diagnostic,
	}
}

func (s *service) persistPages(ctx context.Context, writer *artifactWriter, rendered []RenderedPage) (built, skipped int, err error) {
	var errs []error
	for _, page := range rendered {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return built, skipped, ctxErr
		}
		wrote, err := writer.WriteFile(ctx, writeFileRequest{
			Path:     page.Output,
			Content:  []byte(page.HTML),
			Category: categoryPage,
			Checksum: page.Checksum,
			Source:   page.Source,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if wrote {
			built++
		} else {
			skipped++
		}
	}
	return built, skipped, errors.Join(errs...)
}
