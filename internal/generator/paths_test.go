package generator

import (
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-blog/internal/posts"
)

func TestBuildOutputPath(t *testing.T) {
	cases := map[string]string{
		"/":                 "index.html",
		"":                  "index.html",
		"/posts/hello/":     "posts/hello/index.html",
		"/posts/hello":      "posts/hello/index.html",
		"/404.html":         "404.html",
		"/page2/":           "page2/index.html",
		"/posts/../escape/": "escape/index.html",
		"/feeds/atom.xml":   "feeds/atom.xml",
	}
	for route, want := range cases {
		if got := buildOutputPath(route); got != want {
			t.Fatalf("buildOutputPath(%q) = %q, want %q", route, got, want)
		}
	}
}

func TestHomeRoute(t *testing.T) {
	if homeRoute(1) != "/" || homeRoute(0) != "/" {
		t.Fatal("expected first page at root")
	}
	if got := homeRoute(3); got != "/page3/" {
		t.Fatalf("unexpected route %q", got)
	}
	if got := withBase("/blog", homeRoute(2)); got != "/blog/page2/" {
		t.Fatalf("unexpected based route %q", got)
	}
}

func TestPaginate(t *testing.T) {
	list := make([]*PostData, 5)
	for i := range list {
		list[i] = &PostData{Post: &posts.Post{Title: string(rune('a' + i))}}
	}

	pages := paginate(list, 2)
	if len(pages) != 3 || len(pages[2]) != 1 {
		t.Fatalf("unexpected pagination %v", pages)
	}
	if len(paginate(list, 0)) != 1 {
		t.Fatal("expected a single page when pagination is off")
	}
	if empty := paginate(nil, 10); len(empty) != 1 || len(empty[0]) != 0 {
		t.Fatal("expected one empty page for an empty blog")
	}
}

func TestReservedRoutes(t *testing.T) {
	for _, route := range []string{"/", "/feed.xml", "/page2/", "/assets/css/site.css"} {
		if !isReservedRoute(route) {
			t.Fatalf("expected %s to be reserved", route)
		}
	}
	for _, route := range []string{"/pages/", "/pagename/", "/about/"} {
		if isReservedRoute(route) {
			t.Fatalf("did not expect %s to be reserved", route)
		}
	}
}

func TestManifestRoundTripAndStale(t *testing.T) {
	previous := newBuildManifest()
	previous.GeneratedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	previous.set(manifestEntry{Output: "b/index.html", Category: string(categoryPage), Checksum: "2"})
	previous.set(manifestEntry{Output: "a/index.html", Category: string(categoryPage), Checksum: "1"})
	previous.set(manifestEntry{Output: "assets/x.css", Category: string(categoryAsset), Checksum: "3"})

	data, err := previous.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := parseManifest(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.unchanged(manifestEntry{Output: "a/index.html", Checksum: "1"}) {
		t.Fatal("expected unchanged entry")
	}
	if parsed.unchanged(manifestEntry{Output: "a/index.html", Checksum: "9"}) {
		t.Fatal("expected checksum change to be detected")
	}

	next := newBuildManifest()
	next.set(manifestEntry{Output: "a/index.html", Category: string(categoryPage), Checksum: "1"})
	stale := parsed.stale(next)
	if len(stale) != 2 || stale[0] != "assets/x.css" || stale[1] != "b/index.html" {
		t.Fatalf("unexpected stale list %v", stale)
	}
}

func TestBuildAtomFeedEscapesContent(t *testing.T) {
	post := &posts.Post{
		Title:      "Tom & Jerry <3",
		Date:       time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
		Permalink:  "/posts/tom/",
		Categories: []string{"Cartoons"},
	}
	feed := buildAtomFeed(SiteInfo{Title: "Blog", URL: "https://example.com", BaseURL: "/blog"},
		[]*PostData{{Post: post, HTML: []byte("<p>hi</p>"), URL: "/blog/posts/tom/"}}, 10, time.Now())

	for _, want := range []string{
		"<title>Tom &amp; Jerry &lt;3</title>",
		"<id>https://example.com/blog/posts/tom/</id>",
		`<content type="html">&lt;p&gt;hi&lt;/p&gt;</content>`,
		`<category term="Cartoons" />`,
		"<updated>2024-03-02T12:00:00Z</updated>",
	} {
		if !strings.Contains(feed, want) {
			t.Fatalf("feed missing %q:\n%s", want, feed)
		}
	}
}
