// Package linkcheck verifies that every internal link in a built site
// resolves to a generated file, and optionally to an element id.
package linkcheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// ErrBrokenLinks is returned by Report.Err when a check found broken links.
var ErrBrokenLinks = errors.New("linkcheck: broken internal links")

// Config controls a Checker.
type Config struct {
	// Root is the built site.
	Root fs.FS
	// BaseURL is the path prefix every internal link must carry.
	BaseURL string
	// SiteURL is the site's scheme and host. Absolute links on this host are
	// checked like root-relative ones.
	SiteURL string
	// Fragments enables #id checks against the target document.
	Fragments bool
	// Ignore lists doublestar patterns matched against link paths.
	Ignore  []string
	Workers int
	Logger  interfaces.Logger
}

// BrokenLink is one link that does not resolve.
type BrokenLink struct {
	// Source is the output file holding the link.
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

func (b BrokenLink) String() string {
	return fmt.Sprintf("%s: %s (%s)", b.Source, b.Target, b.Reason)
}

// Report summarises a check run.
type Report struct {
	Pages  int          `json:"pages"`
	Links  int          `json:"links"`
	Broken []BrokenLink `json:"broken"`
}

// OK reports whether no broken links were found.
func (r *Report) OK() bool { return r == nil || len(r.Broken) == 0 }

// Err wraps ErrBrokenLinks with the findings, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	lines := make([]string, 0, len(r.Broken))
	for _, b := range r.Broken {
		lines = append(lines, b.String())
	}
	return fmt.Errorf("%w (%d): %s", ErrBrokenLinks, len(r.Broken), strings.Join(lines, "; "))
}

// Checker walks a built site and validates its internal links.
type Checker struct {
	cfg    Config
	base   string
	site   *url.URL
	logger interfaces.Logger
}

// New returns a Checker for cfg.
func New(cfg Config) *Checker {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Checker{
		cfg:    cfg,
		base:   normalizeBase(cfg.BaseURL),
		site:   parseSiteURL(cfg.SiteURL),
		logger: logger,
	}
}

type document struct {
	file  string
	route string
	ids   map[string]struct{}
	links []string
}

// Check parses every HTML file under Root and resolves its links.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	if c.cfg.Root == nil {
		return nil, errors.New("linkcheck: root filesystem is required")
	}

	var (
		files []string
		all   = map[string]struct{}{}
	)
	err := fs.WalkDir(c.cfg.Root, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		all[name] = struct{}{}
		if isHTML(name) {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("linkcheck: walk output: %w", err)
	}
	sort.Strings(files)

	docs, err := c.parseAll(ctx, files)
	if err != nil {
		return nil, err
	}

	report := &Report{Pages: len(docs)}
	for _, file := range files {
		doc := docs[file]
		for _, href := range doc.links {
			report.Links++
			if reason, ok := c.resolve(doc, href, all, docs); !ok {
				report.Broken = append(report.Broken, BrokenLink{Source: doc.file, Target: href, Reason: reason})
			}
		}
	}

	c.logger.Info("linkcheck.complete", "pages", report.Pages, "links", report.Links, "broken", len(report.Broken))
	for _, b := range report.Broken {
		c.logger.Warn("linkcheck.broken", "source", b.Source, "target", b.Target, "reason", b.Reason)
	}
	return report, nil
}

func (c *Checker) parseAll(ctx context.Context, files []string) (map[string]*document, error) {
	workers := c.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	docs := make(map[string]*document, len(files))
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	jobs := make(chan string)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				doc, err := c.parse(file)
				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				} else {
					docs[file] = doc
				}
				mu.Unlock()
			}
		}()
	}

	var ctxErr error
	for _, file := range files {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		jobs <- file
	}
	close(jobs)
	wg.Wait()
	if ctxErr != nil {
		return nil, ctxErr
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return docs, nil
}

func (c *Checker) parse(file string) (*document, error) {
	data, err := fs.ReadFile(c.cfg.Root, file)
	if err != nil {
		return nil, fmt.Errorf("linkcheck: read %s: %w", file, err)
	}
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("linkcheck: parse %s: %w", file, err)
	}

	doc := &document{file: file, route: routeFor(file), ids: map[string]struct{}{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				switch {
				case a.Key == "id" && a.Val != "":
					doc.ids[a.Val] = struct{}{}
				case a.Key == "name" && n.Data == "a" && a.Val != "":
					doc.ids[a.Val] = struct{}{}
				case linkAttr(n.Data, a.Key):
					if href := strings.TrimSpace(a.Val); href != "" {
						doc.links = append(doc.links, href)
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return doc, nil
}

func linkAttr(tag, key string) bool {
	switch tag {
	case "a", "link", "area":
		return key == "href"
	case "img", "script", "source", "iframe", "audio", "video", "track", "embed":
		return key == "src"
	}
	return false
}

// resolve reports whether href points at an existing output and why not.
func (c *Checker) resolve(doc *document, href string, all map[string]struct{}, docs map[string]*document) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "malformed url", false
	}
	if u.Opaque != "" {
		return "", true
	}
	if u.Scheme != "" || u.Host != "" {
		if !c.sameSite(u) {
			return "", true
		}
		if u.Path == "" {
			u.Path = "/"
		}
	}

	if u.Path == "" {
		if u.Fragment == "" || !c.cfg.Fragments {
			return "", true
		}
		if _, ok := doc.ids[u.Fragment]; !ok {
			return "missing anchor #" + u.Fragment, false
		}
		return "", true
	}

	target := u.Path
	if !strings.HasPrefix(target, "/") {
		target = path.Join(path.Dir(doc.route+"x"), target)
		if strings.HasSuffix(u.Path, "/") && target != "/" {
			target += "/"
		}
	} else if c.base != "" {
		if target != c.base && !strings.HasPrefix(target, c.base+"/") {
			return "outside baseurl " + c.base, false
		}
		target = strings.TrimPrefix(target, c.base)
		if target == "" {
			target = "/"
		}
	}

	if c.ignored(target) {
		return "", true
	}

	file, ok := lookup(target, all)
	if !ok {
		return "no such file", false
	}
	if c.cfg.Fragments && u.Fragment != "" {
		if targetDoc, isDoc := docs[file]; isDoc {
			if _, found := targetDoc.ids[u.Fragment]; !found {
				return "missing anchor #" + u.Fragment, false
			}
		}
	}
	return "", true
}

// sameSite reports whether an absolute or protocol-relative link points at
// the configured site host.
func (c *Checker) sameSite(u *url.URL) bool {
	if c.site == nil {
		return false
	}
	if u.Scheme != "" && !strings.EqualFold(u.Scheme, c.site.Scheme) {
		return false
	}
	return strings.EqualFold(u.Host, c.site.Host)
}

func (c *Checker) ignored(target string) bool {
	for _, pattern := range c.cfg.Ignore {
		if ok, _ := doublestar.Match(pattern, target); ok {
			return true
		}
	}
	return false
}

// lookup maps a site path to the output file serving it.
func lookup(target string, all map[string]struct{}) (string, bool) {
	clean := strings.TrimPrefix(path.Clean("/"+target), "/")
	candidates := []string{}
	if strings.HasSuffix(target, "/") || clean == "" {
		candidates = append(candidates, path.Join(clean, "index.html"))
	} else {
		candidates = append(candidates, clean, path.Join(clean, "index.html"), clean+".html")
	}
	for _, candidate := range candidates {
		if _, ok := all[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// routeFor returns the URL path an output file is served at, without baseurl.
func routeFor(file string) string {
	if file == "index.html" {
		return "/"
	}
	if strings.HasSuffix(file, "/index.html") {
		return "/" + strings.TrimSuffix(file, "index.html")
	}
	return "/" + file
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}

func parseSiteURL(raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil
	}
	return &url.URL{Scheme: strings.ToLower(u.Scheme), Host: strings.ToLower(u.Host)}
}

func normalizeBase(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base
}
