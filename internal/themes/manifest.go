package themes

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	gotheme "github.com/goliatone/go-theme"
)

// Manifest is the go-theme descriptor found at a theme root.
type Manifest = gotheme.Manifest

// Version given to themes that ship without a manifest.
const unversioned = "0.0.0"

// ErrUnknownVariant is returned when the configured variant is not declared
// by the active theme.
var ErrUnknownVariant = errors.New("themes: unknown variant")

// manifestNames mirrors the file names gotheme.LoadDir looks for.
var manifestNames = []string{
	"theme.json",
	"theme.yaml",
	"theme.yml",
	"manifest.json",
	"manifest.yaml",
	"manifest.yml",
}

// LoadManifest reads and validates the manifest at the root of fsys. A theme
// without one is described by fallback alone.
func LoadManifest(fsys fs.FS, fallback string) (*Manifest, error) {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = "custom"
	}

	var manifest *Manifest
	if hasManifest(fsys) {
		loaded, err := gotheme.LoadDir(fsys, ".")
		if err != nil {
			return nil, fmt.Errorf("themes: load manifest: %w", err)
		}
		manifest = loaded
	} else {
		manifest = &Manifest{Name: fallback, Version: unversioned}
	}

	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("themes: manifest %s: %w", manifest.Name, err)
	}
	localizeAssets(manifest)
	return manifest, nil
}

func hasManifest(fsys fs.FS) bool {
	for _, name := range manifestNames {
		if info, err := fs.Stat(fsys, name); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// localizeAssets drops asset prefixes that are not absolute URLs. Local theme
// assets are always published under /assets/.
func localizeAssets(manifest *Manifest) {
	if !isExternal(manifest.Assets.Prefix) {
		manifest.Assets.Prefix = ""
	}
	for name, variant := range manifest.Variants {
		if !isExternal(variant.Assets.Prefix) {
			variant.Assets.Prefix = ""
			manifest.Variants[name] = variant
		}
	}
}

// themeSelection resolves templates and assets against the active theme
// first and the embedded default second.
type themeSelection struct {
	active   *gotheme.Selection
	fallback *gotheme.Selection
}

func selectTheme(defaultManifest, active *Manifest, variant string) (*themeSelection, error) {
	registry := gotheme.NewRegistry()
	if err := registry.Register(defaultManifest); err != nil {
		return nil, fmt.Errorf("themes: register %s: %w", defaultManifest.Name, err)
	}
	if active != nil && active != defaultManifest {
		if err := registry.Register(active); err != nil {
			return nil, fmt.Errorf("themes: register %s: %w", active.Name, err)
		}
	} else {
		active = defaultManifest
	}

	selector := gotheme.Selector{
		Registry:       registry,
		DefaultTheme:   defaultManifest.Name,
		DefaultVariant: strings.TrimSpace(variant),
	}
	activeSel, err := selector.Select(active.Name, "")
	if err != nil {
		return nil, fmt.Errorf("themes: %w", err)
	}
	fallbackSel, err := selector.Select(defaultManifest.Name, "")
	if err != nil {
		return nil, fmt.Errorf("themes: %w", err)
	}

	if v := activeSel.Variant; v != "" {
		_, inActive := activeSel.Manifest.Variants[v]
		_, inDefault := fallbackSel.Manifest.Variants[v]
		if !inActive && !inDefault {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariant, v)
		}
	}
	return &themeSelection{active: activeSel, fallback: fallbackSel}, nil
}

func (s *themeSelection) selections() []*gotheme.Selection {
	if s.active.Manifest.Name == s.fallback.Manifest.Name {
		return []*gotheme.Selection{s.active}
	}
	return []*gotheme.Selection{s.active, s.fallback}
}

// template maps a layout key to the file declared by the manifests, or "".
func (s *themeSelection) template(key string) string {
	for _, sel := range s.selections() {
		if name := sel.Template(key, ""); name != "" {
			return name
		}
	}
	return ""
}

// asset resolves a declared asset key to an absolute URL or a path relative
// to the published assets directory.
func (s *themeSelection) asset(key string) (string, bool) {
	for _, sel := range s.selections() {
		if p, ok := sel.Asset(key); ok {
			return p, true
		}
	}
	return "", false
}

// assetKeys lists every asset key declared by either manifest, sorted.
func (s *themeSelection) assetKeys() []string {
	keys := map[string]struct{}{}
	for _, sel := range s.selections() {
		for key := range sel.Manifest.Assets.Files {
			keys[key] = struct{}{}
		}
		if variant, ok := sel.Manifest.Variants[sel.Variant]; ok {
			for key := range variant.Assets.Files {
				keys[key] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(keys))
}

// info is exposed to templates as the theme global.
func (s *themeSelection) info() map[string]any {
	return map[string]any{
		"name":     s.active.Manifest.Name,
		"version":  s.active.Manifest.Version,
		"variant":  s.active.Variant,
		"css_vars": s.cssVariables(),
	}
}

// cssVariables merges the default tokens under the active theme's.
func (s *themeSelection) cssVariables() map[string]string {
	vars := map[string]string{}
	list := s.selections()
	for i := len(list) - 1; i >= 0; i-- {
		maps.Copy(vars, list[i].CSSVariables(""))
	}
	return vars
}

func cleanAssetPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
