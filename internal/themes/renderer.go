package themes

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	rootthemes "github.com/goliatone/go-blog/themes"
)

// Config selects the layout and asset sources.
type Config struct {
	// Layouts is the site's override directory (_layouts). Optional.
	Layouts fs.FS
	// Theme is a theme root holding layouts/, assets/ and a go-theme manifest. Optional.
	Theme fs.FS
	// ThemeName labels the theme when it has no manifest.
	ThemeName string
	// Variant picks a manifest variant, e.g. "dark".
	Variant string
	// BaseURL is the normalized site baseurl ("" or "/blog").
	BaseURL string
	// SiteURL is the absolute site URL including BaseURL.
	SiteURL string
}

// Renderer renders named layouts through a pongo2 template set.
type Renderer struct {
	set       *pongo2.TemplateSet
	loader    *layeredLoader
	site      fs.FS
	assets    []fs.FS
	selection *themeSelection

	mu    sync.Mutex
	cache map[string]*pongo2.Template
}

// NewRenderer builds a renderer over the configured layers with the embedded
// default theme as the last fallback.
func NewRenderer(cfg Config) (*Renderer, error) {
	if err := ensureFilters(); err != nil {
		return nil, err
	}

	defaultTheme := rootthemes.Default()
	defaultManifest, err := LoadManifest(defaultTheme, rootthemes.DefaultName)
	if err != nil {
		return nil, err
	}

	var layouts []fs.FS
	var assets []fs.FS
	if cfg.Layouts != nil {
		layouts = append(layouts, cfg.Layouts)
	}
	active := defaultManifest
	if cfg.Theme != nil {
		if active, err = LoadManifest(cfg.Theme, cfg.ThemeName); err != nil {
			return nil, err
		}
		if sub, err := fs.Sub(cfg.Theme, "layouts"); err == nil {
			layouts = append(layouts, sub)
		}
	}
	if sub, err := fs.Sub(defaultTheme, "layouts"); err == nil {
		layouts = append(layouts, sub)
	}

	if sub, err := fs.Sub(defaultTheme, "assets"); err == nil {
		assets = append(assets, sub)
	}
	if cfg.Theme != nil {
		if sub, err := fs.Sub(cfg.Theme, "assets"); err == nil {
			assets = append(assets, sub)
		}
	}

	selection, err := selectTheme(defaultManifest, active, cfg.Variant)
	if err != nil {
		return nil, err
	}

	loader := &layeredLoader{layers: layouts}
	set := pongo2.NewSet("blog", loader)
	set.Globals = pongo2.Context{
		"relative_url": func(p string) string { return RelativeURL(cfg.BaseURL, p) },
		"absolute_url": func(p string) string { return AbsoluteURL(cfg.SiteURL, p) },
		"theme_asset": func(key string) string {
			p, ok := selection.asset(key)
			if !ok {
				return ""
			}
			if isExternal(p) {
				return p
			}
			return RelativeURL(cfg.BaseURL, "/assets/"+cleanAssetPath(p))
		},
		"theme": selection.info(),
	}

	return &Renderer{
		set:       set,
		loader:    loader,
		site:      cfg.Layouts,
		assets:    assets,
		selection: selection,
		cache:     map[string]*pongo2.Template{},
	}, nil
}

// Manifest describes the active theme.
func (r *Renderer) Manifest() Manifest { return *r.selection.active.Manifest }

// AssetLayers returns theme asset roots, lowest priority first.
func (r *Renderer) AssetLayers() []fs.FS { return append([]fs.FS(nil), r.assets...) }

// AssetFiles maps every asset key the manifests declare to its path inside
// the published assets directory. Keys served from an absolute URL are left out.
func (r *Renderer) AssetFiles() map[string]string {
	out := map[string]string{}
	for _, key := range r.selection.assetKeys() {
		p, ok := r.selection.asset(key)
		if !ok || isExternal(p) {
			continue
		}
		out[key] = cleanAssetPath(p)
	}
	return out
}

// Has reports whether any layer provides layout.
func (r *Renderer) Has(layout string) bool {
	return r.loader.exists(r.resolve(layout))
}

// Render executes layout with data. The output is also copied to every writer in out.
func (r *Renderer) Render(layout string, data map[string]any, out ...io.Writer) (string, error) {
	tpl, err := r.template(r.resolve(layout))
	if err != nil {
		return "", err
	}
	rendered, err := tpl.Execute(pongo2.Context(data))
	if err != nil {
		return "", fmt.Errorf("themes: render %s: %w", layout, err)
	}
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return rendered, fmt.Errorf("themes: write %s: %w", layout, err)
		}
	}
	return rendered, nil
}

// resolve maps a layout name to a template file. A site layout with the
// layout's own name wins, then the manifest templates, then the name itself.
func (r *Renderer) resolve(layout string) string {
	file := layoutFile(layout)
	if r.site != nil {
		if info, err := fs.Stat(r.site, file); err == nil && !info.IsDir() {
			return file
		}
	}
	key := strings.TrimSuffix(file, path.Ext(file))
	if mapped := r.selection.template(key); mapped != "" {
		return layoutFile(mapped)
	}
	return file
}

func (r *Renderer) template(name string) (*pongo2.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[name]; ok {
		return tpl, nil
	}
	if !r.loader.exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	tpl, err := r.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("themes: parse %s: %w", name, err)
	}
	r.cache[name] = tpl
	return tpl, nil
}

func layoutFile(layout string) string {
	layout = strings.TrimSpace(layout)
	if path.Ext(layout) == "" {
		layout += ".html"
	}
	return strings.TrimPrefix(path.Clean("/"+layout), "/")
}

// RelativeURL prefixes root-relative paths with baseURL.
func RelativeURL(baseURL, p string) string {
	p = strings.TrimSpace(p)
	if isExternal(p) {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(baseURL, "/") + p
}

// AbsoluteURL joins siteURL (which already carries the baseurl) and p.
func AbsoluteURL(siteURL, p string) string {
	p = strings.TrimSpace(p)
	if isExternal(p) {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(siteURL, "/") + p
}

func isExternal(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") || strings.HasPrefix(p, "//")
}
