package generator_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/internal/linkcheck"
	"github.com/goliatone/go-blog/internal/markdown"
	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/themes"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

var buildTime = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func sampleSite() fstest.MapFS {
	return fstest.MapFS{
		"_posts/2024-03-02-django-orm-all-only-values.md": {Data: []byte(`---
title: "Django ORM: .all() vs .only() vs .values()"
date: 2024-03-02 21:10:00 +0900
categories: [Django, ORM]
tags: [django, orm]
---

## Loading everything

Fetching full model instances is convenient but expensive.

## Loading less

Use values when you only need columns.
`)},
		"_posts/2024-03-09-django-iterator.md": {Data: []byte(`---
title: Streaming large querysets with .iterator()
date: 2024-03-09 09:00:00 +0900
categories: [Django]
tags: [django, memory]
---

The iterator skips the queryset cache. See the [previous post](/blog/posts/django-orm-all-only-values/).
`)},
		"_posts/2024-02-20-welcome.md": {Data: []byte(`---
title: Welcome
pin: true
---

First post.
`)},
		"_tabs/about.md": {Data: []byte(`---
title: About
icon: fas fa-info-circle
order: 2
---

About this blog.
`)},
		"_tabs/archives.md": {Data: []byte(`---
title: Archives
layout: archives
order: 1
---
`)},
		"assets/img/logo.png": {Data: []byte("png")},
	}
}

type fixture struct {
	site    fstest.MapFS
	storage *generator.MemoryStorage
	cfg     generator.Config
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		site:    sampleSite(),
		storage: generator.NewMemoryStorage(),
		now:     buildTime,
		cfg: generator.Config{
			Site: generator.SiteInfo{
				Title:   "Query Notes",
				URL:     "https://example.com",
				BaseURL: "/blog",
				Author:  "Jane",
				Lang:    "en",
			},
			Permalink:       "/posts/:title/",
			Paginate:        10,
			Workers:         2,
			GenerateSitemap: true,
			GenerateRobots:  true,
			GenerateFeed:    true,
			GenerateSearch:  true,
			ExcerptWords:    20,
			AssetsDir:       "assets",
		},
	}
}

func (f *fixture) service(t *testing.T) generator.Service {
	t.Helper()
	renderer, err := themes.NewRenderer(themes.Config{
		BaseURL: f.cfg.Site.BaseURL,
		SiteURL: f.cfg.Site.SiteURL(),
	})
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return generator.NewService(f.cfg, generator.Dependencies{
		Loader:   posts.NewLoader(f.site, posts.LoaderConfig{Location: time.UTC}),
		Parser:   markdown.NewGoldmarkParser(interfaces.ParseOptions{}),
		Renderer: renderer,
		Storage:  f.storage,
		Source:   f.site,
		Now:      func() time.Time { return f.now },
	})
}

func (f *fixture) read(t *testing.T, name string) string {
	t.Helper()
	data, err := f.storage.ReadFile(context.Background(), name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func (f *fixture) output() fstest.MapFS {
	out := fstest.MapFS{}
	for _, name := range f.storage.Files() {
		data, _ := f.storage.ReadFile(context.Background(), name)
		out[name] = &fstest.MapFile{Data: data}
	}
	return out
}

func TestBuildProducesCompleteSite(t *testing.T) {
	f := newFixture(t)

	result, err := f.service(t).Build(context.Background(), generator.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Posts != 3 || result.Pages != 2 {
		t.Fatalf("expected 3 posts and 2 pages, got %d and %d", result.Posts, result.Pages)
	}

	expected := []string{
		"index.html",
		"404.html",
		"posts/django-orm-all-only-values/index.html",
		"posts/django-iterator/index.html",
		"posts/welcome/index.html",
		"about/index.html",
		"archives/index.html",
		"categories/index.html",
		"categories/django/index.html",
		"categories/orm/index.html",
		"tags/index.html",
		"tags/django/index.html",
		"tags/memory/index.html",
		"feed.xml",
		"sitemap.xml",
		"robots.txt",
		"assets/css/style.css",
		"assets/js/search.js",
		"assets/js/data/search.json",
		"assets/img/logo.png",
		generator.ManifestFileName,
	}
	for _, name := range expected {
		if ok, _ := f.storage.Exists(context.Background(), name); !ok {
			t.Fatalf("expected %s to be written; have %v", name, f.storage.Files())
		}
	}

	home := f.read(t, "index.html")
	if strings.Index(home, "Welcome") > strings.Index(home, "Streaming large querysets") {
		t.Fatal("expected pinned post to lead the home page")
	}
	if !strings.Contains(home, `href="/blog/posts/django-iterator/"`) {
		t.Fatal("expected post links to carry the baseurl")
	}

	post := f.read(t, "posts/django-orm-all-only-values/index.html")
	if !strings.Contains(post, `href="#loading-everything"`) {
		t.Fatal("expected table of contents entries")
	}
	if !strings.Contains(post, `href="/blog/posts/django-iterator/"`) {
		t.Fatal("expected link to the newer post")
	}
	if !strings.Contains(post, `href="/blog/posts/welcome/"`) {
		t.Fatal("expected link to the older post")
	}

	sitemap := f.read(t, "sitemap.xml")
	if !strings.Contains(sitemap, "<loc>https://example.com/blog/posts/django-iterator/</loc>") {
		t.Fatalf("sitemap missing post entry:\n%s", sitemap)
	}
	if strings.Contains(sitemap, "404.html") {
		t.Fatal("404 page should not be listed in the sitemap")
	}
	if !strings.Contains(f.read(t, "robots.txt"), "Sitemap: https://example.com/blog/sitemap.xml") {
		t.Fatal("expected robots.txt to reference the sitemap")
	}

	feed := f.read(t, "feed.xml")
	if !strings.Contains(feed, "<id>https://example.com/blog/posts/django-iterator/</id>") {
		t.Fatalf("feed missing entry:\n%s", feed)
	}
	if !strings.Contains(feed, "<updated>2024-03-09T00:00:00Z</updated>") {
		t.Fatalf("expected feed updated from newest post:\n%s", feed)
	}

	var index []map[string]string
	if err := json.Unmarshal([]byte(f.read(t, "assets/js/data/search.json")), &index); err != nil {
		t.Fatalf("decode search index: %v", err)
	}
	if len(index) != 3 || index[0]["url"] != "/blog/posts/django-iterator/" {
		t.Fatalf("unexpected search index %v", index)
	}
}

func TestBuildHasNoBrokenInternalLinks(t *testing.T) {
	f := newFixture(t)
	f.cfg.Paginate = 1

	if _, err := f.service(t).Build(context.Background(), generator.BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	report, err := linkcheck.New(linkcheck.Config{
		Root:      f.output(),
		BaseURL:   f.cfg.Site.BaseURL,
		Fragments: true,
	}).Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !report.OK() {
		t.Fatalf("broken links: %v", report.Broken)
	}
	if report.Pages == 0 || report.Links == 0 {
		t.Fatalf("expected pages and links to be checked, got %+v", report)
	}
}

func TestBuildPaginatesHome(t *testing.T) {
	f := newFixture(t)
	f.cfg.Paginate = 2

	if _, err := f.service(t).Build(context.Background(), generator.BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	second := f.read(t, "page2/index.html")
	if !strings.Contains(second, "2 / 2") {
		t.Fatal("expected page counter on the second page")
	}
	if !strings.Contains(second, `href="/blog/"`) {
		t.Fatal("expected link back to the first page")
	}
	if ok, _ := f.storage.Exists(context.Background(), "page3/index.html"); ok {
		t.Fatal("did not expect a third page")
	}
}

func TestBuildRejectsPostWithoutTitle(t *testing.T) {
	f := newFixture(t)
	f.site["_posts/2024-03-10-untitled.md"] = &fstest.MapFile{Data: []byte("---\ndate: 2024-03-10\n---\nbody\n")}

	_, err := f.service(t).Build(context.Background(), generator.BuildOptions{})
	if !errors.Is(err, generator.ErrValidation) || !errors.Is(err, posts.ErrInvalidPost) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "title is required") {
		t.Fatalf("expected title message, got %v", err)
	}
	if files := f.storage.Files(); len(files) != 0 {
		t.Fatalf("expected nothing written, got %v", files)
	}
}

func TestBuildRejectsInvalidDate(t *testing.T) {
	f := newFixture(t)
	f.site["_posts/notes.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Notes\ndate: someday\n---\nbody\n")}

	_, err := f.service(t).Build(context.Background(), generator.BuildOptions{})
	if !errors.Is(err, generator.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"someday" is not a valid date`) {
		t.Fatalf("expected date message, got %v", err)
	}
}

func TestBuildRejectsPermalinkClashWithTab(t *testing.T) {
	f := newFixture(t)
	f.site["_tabs/welcome.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Welcome\npermalink: /posts/welcome/\n---\nhi\n")}

	_, err := f.service(t).Build(context.Background(), generator.BuildOptions{})
	if !errors.Is(err, posts.ErrDuplicatePermalink) {
		t.Fatalf("expected duplicate permalink error, got %v", err)
	}
}

func TestBuildSkipsFutureAndDraftPosts(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	f.site["_drafts/wip.md"] = &fstest.MapFile{
		Data:    []byte("---\ntitle: Work in progress\n---\nsoon\n"),
		ModTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	svc := f.service(t)

	result, err := svc.Build(context.Background(), generator.BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Posts != 2 {
		t.Fatalf("expected future and draft posts to be skipped, got %d posts", result.Posts)
	}

	result, err = svc.Build(context.Background(), generator.BuildOptions{DryRun: true, Drafts: true, Future: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Posts != 4 {
		t.Fatalf("expected all posts, got %d", result.Posts)
	}
	if !result.DryRun || len(f.storage.Files()) != 0 {
		t.Fatal("dry run should not write")
	}
	found := false
	for _, page := range result.Rendered {
		if page.Route == "/posts/wip/" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected draft to be rendered")
	}
}

func TestIncrementalBuildSkipsUnchangedAndPrunesStale(t *testing.T) {
	f := newFixture(t)
	f.cfg.Incremental = true
	svc := f.service(t)

	first, err := svc.Build(context.Background(), generator.BuildOptions{})
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if first.PagesBuilt == 0 || first.PagesSkipped != 0 {
		t.Fatalf("unexpected first build counts %+v", first)
	}

	second, err := svc.Build(context.Background(), generator.BuildOptions{})
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if second.PagesBuilt != 0 || second.PagesSkipped != first.PagesBuilt {
		t.Fatalf("expected every page to be skipped, got built=%d skipped=%d", second.PagesBuilt, second.PagesSkipped)
	}
	if second.AssetsBuilt != 0 {
		t.Fatalf("expected assets to be skipped, got %d", second.AssetsBuilt)
	}

	delete(f.site, "_posts/2024-03-09-django-iterator.md")
	third, err := svc.Build(context.Background(), generator.BuildOptions{})
	if err != nil {
		t.Fatalf("third Build: %v", err)
	}
	removed := strings.Join(third.Removed, ",")
	for _, want := range []string{"posts/django-iterator/index.html", "tags/memory/index.html"} {
		if !strings.Contains(removed, want) {
			t.Fatalf("expected %s to be pruned, got %v", want, third.Removed)
		}
		if ok, _ := f.storage.Exists(context.Background(), want); ok {
			t.Fatalf("expected %s to be removed", want)
		}
	}
	if third.PagesBuilt == 0 {
		t.Fatal("expected pages listing the removed post to be rewritten")
	}
}

func TestCleanBuildRemovesForeignFiles(t *testing.T) {
	f := newFixture(t)
	f.cfg.CleanBuild = true
	ctx := context.Background()
	if err := f.storage.WriteFile(ctx, "leftover.html", strings.NewReader("old")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := f.service(t).Build(ctx, generator.BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ok, _ := f.storage.Exists(ctx, "leftover.html"); ok {
		t.Fatal("expected clean build to drop files it did not produce")
	}
}

func TestCleanEmptiesOutput(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t)
	if _, err := svc.Build(context.Background(), generator.BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := svc.Clean(context.Background()); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if files := f.storage.Files(); len(files) != 0 {
		t.Fatalf("expected empty output, got %v", files)
	}
}

func TestBuildHonoursCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.service(t).Build(ctx, generator.BuildOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	svc := generator.NewService(generator.Config{}, generator.Dependencies{})
	if _, err := svc.Build(context.Background(), generator.BuildOptions{}); err == nil {
		t.Fatal("expected missing dependency error")
	}
}

func TestBuildRejectsPostsClaimingGeneratedRoutes(t *testing.T) {
	cases := []struct {
		name      string
		permalink string
		owner     string
	}{
		{"tags index", "/tags/", "generated tags index"},
		{"categories index", "/categories", "generated categories index"},
		{"tag page", "/tags/django/", `generated tag "django"`},
		{"category page", "/categories/orm/", `generated category "ORM"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.site["_posts/2024-03-20-essay.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Essay\ndate: 2024-03-20\npermalink: " + tc.permalink + "\n---\nwords\n")}

			_, err := f.service(t).Build(context.Background(), generator.BuildOptions{})
			if !errors.Is(err, posts.ErrDuplicatePermalink) {
				t.Fatalf("expected duplicate permalink error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.owner) || !strings.Contains(err.Error(), "_posts/2024-03-20-essay.md") {
				t.Fatalf("expected error to name both sources, got %v", err)
			}
			if len(f.storage.Files()) != 0 {
				t.Fatalf("expected nothing written, got %v", f.storage.Files())
			}
		})
	}
}

func TestBuildLetsTabsReplaceListings(t *testing.T) {
	f := newFixture(t)
	f.site["_tabs/tags.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Tags\nlayout: tags\norder: 3\n---\n")}

	if _, err := f.service(t).Build(context.Background(), generator.BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	f = newFixture(t)
	f.site["_tabs/django.md"] = &fstest.MapFile{Data: []byte("---\ntitle: Django\npermalink: /tags/django/\n---\nhi\n")}
	if _, err := f.service(t).Build(context.Background(), generator.BuildOptions{}); !errors.Is(err, posts.ErrDuplicatePermalink) {
		t.Fatalf("expected tab on a term route to fail, got %v", err)
	}
}

func TestBuildOutputIsDeterministicAcrossWorkerCounts(t *testing.T) {
	build := func(workers int) *fixture {
		f := newFixture(t)
		for i := 1; i <= 12; i++ {
			name := fmt.Sprintf("_posts/2024-01-%02d-note-%d.md", i, i)
			f.site[name] = &fstest.MapFile{Data: []byte(fmt.Sprintf("---\ntitle: Note %d\ndate: 2024-01-%02d\ntags: [notes, t%d]\ncategories: [Notes]\n---\nbody %d\n", i, i, i%3, i))}
		}
		f.cfg.Paginate = 4
		f.cfg.Workers = workers
		if _, err := f.service(t).Build(context.Background(), generator.BuildOptions{}); err != nil {
			t.Fatalf("Build with %d workers: %v", workers, err)
		}
		return f
	}

	serial := build(1)
	parallel := build(8)

	serialFiles := serial.storage.Files()
	parallelFiles := parallel.storage.Files()
	if strings.Join(serialFiles, "\n") != strings.Join(parallelFiles, "\n") {
		t.Fatalf("expected identical file sets\nserial:   %v\nparallel: %v", serialFiles, parallelFiles)
	}
	for _, name := range serialFiles {
		if serial.read(t, name) != parallel.read(t, name) {
			t.Fatalf("output %s differs between worker counts", name)
		}
	}
}

func TestBuildRendersTrendingTagsInSidebar(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service(t).Build(context.Background(), generator.BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}

	home := f.read(t, "index.html")
	want := `<a class="tag" href="/blog/tags/django/">django</a><a class="tag" href="/blog/tags/memory/">memory</a><a class="tag" href="/blog/tags/orm/">orm</a>`
	if !strings.Contains(home, `id="trending-tags"`) || !strings.Contains(home, want) {
		t.Fatalf("expected trending tags ordered by use in sidebar:\n%s", home)
	}
	if !strings.Contains(f.read(t, "posts/django-iterator/index.html"), want) {
		t.Fatal("expected trending tags on post pages too")
	}
}

func TestBuildCopiesManifestAssetsAndFailsOnMissingOnes(t *testing.T) {
	build := func(t *testing.T, theme fstest.MapFS) (*fixture, error) {
		f := newFixture(t)
		renderer, err := themes.NewRenderer(themes.Config{Theme: theme, BaseURL: f.cfg.Site.BaseURL})
		if err != nil {
			t.Fatalf("NewRenderer: %v", err)
		}
		svc := generator.NewService(f.cfg, generator.Dependencies{
			Loader:   posts.NewLoader(f.site, posts.LoaderConfig{Location: time.UTC}),
			Parser:   markdown.NewGoldmarkParser(interfaces.ParseOptions{}),
			Renderer: renderer,
			Storage:  f.storage,
			Source:   f.site,
			Now:      func() time.Time { return f.now },
		})
		_, err = svc.Build(context.Background(), generator.BuildOptions{})
		return f, err
	}

	f, err := build(t, fstest.MapFS{
		"theme.json":          {Data: []byte(`{"name":"dusk","version":"1.0.0","assets":{"files":{"logo":"img/dusk.svg"}}}`)},
		"assets/img/dusk.svg": {Data: []byte(`<svg/>`)},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if f.read(t, "assets/img/dusk.svg") != `<svg/>` {
		t.Fatal("expected declared theme asset to be published")
	}

	_, err = build(t, fstest.MapFS{
		"theme.json": {Data: []byte(`{"name":"dusk","version":"1.0.0","assets":{"files":{"logo":"img/gone.svg"}}}`)},
	})
	if err == nil || !strings.Contains(err.Error(), "theme asset missing: logo (assets/img/gone.svg)") {
		t.Fatalf("expected missing theme asset error, got %v", err)
	}
}
