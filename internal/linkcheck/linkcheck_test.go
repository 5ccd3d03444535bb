package linkcheck_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-blog/internal/linkcheck"
)

func file(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestCheckerAcceptsResolvableLinks(t *testing.T) {
	site := fstest.MapFS{
		"index.html": file(`<a href="/blog/posts/one/">one</a>
<a href="/blog/posts/one/#setup">setup</a>
<a href="/blog/feed.xml">feed</a>
<a href="https://example.org/">external</a>
<a href="mailto:me@example.com">mail</a>
<link rel="stylesheet" href="/blog/assets/css/style.css">
<a href="#top" id="top">top</a>`),
		"posts/one/index.html": file(`<h2 id="setup">Setup</h2><a href="../../">home</a><a href="/blog/archives">archives</a>`),
		"archives/index.html":  file(`<img src="/blog/assets/img/logo.png">`),
		"feed.xml":             file(`<feed/>`),
		"assets/css/style.css": file(`body{}`),
		"assets/img/logo.png":  file("png"),
	}

	report, err := linkcheck.New(linkcheck.Config{Root: site, BaseURL: "/blog/", Fragments: true}).Check(context.Background())
	require.NoError(t, err)
	require.True(t, report.OK(), "unexpected broken links: %v", report.Broken)
	require.Equal(t, 3, report.Pages)
	require.Equal(t, 10, report.Links)
	require.NoError(t, report.Err())
}

func TestCheckerReportsBrokenLinks(t *testing.T) {
	site := fstest.MapFS{
		"index.html": file(`<a href="/posts/missing/">gone</a>
<a href="/posts/one/#nowhere">bad anchor</a>
<a href="#absent">bad local anchor</a>
<img src="/assets/missing.png">`),
		"posts/one/index.html": file(`<p>one</p>`),
	}

	report, err := linkcheck.New(linkcheck.Config{Root: site, Fragments: true}).Check(context.Background())
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Len(t, report.Broken, 4)

	targets := make([]string, 0, len(report.Broken))
	for _, b := range report.Broken {
		require.Equal(t, "index.html", b.Source)
		targets = append(targets, b.Target)
	}
	require.ElementsMatch(t, []string{"/posts/missing/", "/posts/one/#nowhere", "#absent", "/assets/missing.png"}, targets)
	require.True(t, errors.Is(report.Err(), linkcheck.ErrBrokenLinks))
}

func TestCheckerSkipsAnchorsWhenFragmentsDisabled(t *testing.T) {
	site := fstest.MapFS{
		"index.html":           file(`<a href="/posts/one/#nowhere">x</a><a href="#absent">y</a>`),
		"posts/one/index.html": file(`<p>one</p>`),
	}

	report, err := linkcheck.New(linkcheck.Config{Root: site}).Check(context.Background())
	require.NoError(t, err)
	require.True(t, report.OK())
}

func TestCheckerFlagsLinksOutsideBaseURL(t *testing.T) {
	site := fstest.MapFS{
		"index.html":           file(`<a href="/posts/one/">missing base</a>`),
		"posts/one/index.html": file(`<p>one</p>`),
	}

	report, err := linkcheck.New(linkcheck.Config{Root: site, BaseURL: "/blog"}).Check(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Broken, 1)
	require.Contains(t, report.Broken[0].Reason, "outside baseurl")
}

func TestCheckerHonoursIgnorePatterns(t *testing.T) {
	site := fstest.MapFS{
		"index.html": file(`<a href="/downloads/report.pdf">report</a>`),
	}

	report, err := linkcheck.New(linkcheck.Config{Root: site, Ignore: []string{"/downloads/**"}}).Check(context.Background())
	require.NoError(t, err)
	require.True(t, report.OK())
}

func TestCheckerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := linkcheck.New(linkcheck.Config{Root: fstest.MapFS{"index.html": file("<p></p>")}}).Check(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheckerResolvesAbsoluteLinksOnSiteHost(t *testing.T) {
	site := fstest.MapFS{
		"index.html": file(`<a href="https://Example.com/blog/posts/one/">one</a>
<a href="//example.com/blog/feed.xml">feed</a>
<a href="https://example.com/blog/posts/missing/">gone</a>
<a href="https://example.com/posts/one/">no base</a>
<a href="https://other.example.com/posts/missing/">external</a>
<a href="http://example.com/blog/posts/missing/">other scheme</a>`),
		"posts/one/index.html": file(`<p>one</p>`),
		"feed.xml":             file(`<feed/>`),
	}

	report, err := linkcheck.New(linkcheck.Config{
		Root:    site,
		BaseURL: "/blog",
		SiteURL: "https://example.com",
	}).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, report.Links)

	targets := make([]string, 0, len(report.Broken))
	for _, b := range report.Broken {
		targets = append(targets, b.Target)
	}
	require.ElementsMatch(t, []string{
		"https://example.com/blog/posts/missing/",
		"https://example.com/posts/one/",
	}, targets)
}

func TestCheckerAcceptsValidAbsoluteSelfLink(t *testing.T) {
	site := fstest.MapFS{
		"index.html":           file(`<a href="https://example.com/posts/one/">one</a><a href="https://example.com">home</a>`),
		"posts/one/index.html": file(`<p>one</p>`),
	}

	report, err := linkcheck.New(linkcheck.Config{Root: site, SiteURL: "https://example.com/"}).Check(context.Background())
	require.NoError(t, err)
	require.True(t, report.OK(), "unexpected broken links: %v", report.Broken)
	require.Equal(t, 2, report.Links)
}
