package generator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

type assetSummary struct {
	Built   int
	Skipped int
}

type assetSource struct {
	fsys fs.FS
	name string
}

// copyAssets copies theme assets then site assets under assets/. Later layers
// replace files with the same relative path.
func (s *service) copyAssets(ctx context.Context, writer *artifactWriter) (assetSummary, error) {
	var summary assetSummary
	layers := s.deps.Renderer.AssetLayers()
	if site := s.siteAssets(); site != nil {
		layers = append(layers, site)
	}

	files := map[string]assetSource{}
	for _, layer := range layers {
		err := fs.WalkDir(layer, ".", func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if name != "." && strings.HasPrefix(path.Base(name), ".") {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			files[name] = assetSource{fsys: layer, name: name}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return summary, fmt.Errorf("generator: walk assets: %w", err)
		}
	}

	if err := checkDeclaredAssets(s.deps.Renderer.AssetFiles(), files); err != nil {
		return summary, err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		output := path.Join("assets", name)
		if output == searchIndexPath && s.cfg.GenerateSearch {
			continue
		}
		src := files[name]
		data, err := fs.ReadFile(src.fsys, src.name)
		if err != nil {
			errs = append(errs, fmt.Errorf("generator: read asset %s: %w", name, err))
			continue
		}
		wrote, err := writer.WriteFile(ctx, writeFileRequest{
			Path:     output,
			Content:  data,
			Category: categoryAsset,
			Source:   name,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if wrote {
			summary.Built++
		} else {
			summary.Skipped++
		}
	}
	return summary, errors.Join(errs...)
}

// checkDeclaredAssets fails when a manifest asset has no file in any layer.
func checkDeclaredAssets(declared map[string]string, files map[string]assetSource) error {
	keys := make([]string, 0, len(declared))
	for key := range declared {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		if _, ok := files[declared[key]]; !ok {
			errs = append(errs, fmt.Errorf("%w: %s (assets/%s)", errThemeAssetMissing, key, declared[key]))
		}
	}
	return errors.Join(errs...)
}

func (s *service) siteAssets() fs.FS {
	dir := strings.Trim(strings.TrimSpace(s.cfg.AssetsDir), "/")
	if s.deps.Source == nil || dir == "" {
		return nil
	}
	if _, err := fs.Stat(s.deps.Source, dir); err != nil {
		return nil
	}
	sub, err := fs.Sub(s.deps.Source, dir)
	if err != nil {
		return nil
	}
	return sub
}

// writeSupportFiles emits the sitemap, robots.txt, Atom feed and search index.
func (s *service) writeSupportFiles(ctx context.Context, writer *artifactWriter, buildCtx *BuildContext, rendered []RenderedPage) error {
	siteURL := s.cfg.Site.SiteURL()
	var errs []error
	write := func(name string, category writeCategory, content []byte) {
		if _, err := writer.WriteFile(ctx, writeFileRequest{
			Path:     name,
			Content:  content,
			Category: category,
		}); err != nil {
			errs = append(errs, err)
		}
	}

	if s.cfg.GenerateSitemap {
		write("sitemap.xml", categorySitemap, []byte(buildSitemap(siteURL, rendered)))
	}
	if s.cfg.GenerateRobots {
		write("robots.txt", categoryRobots, []byte(buildRobots(siteURL, s.cfg.GenerateSitemap)))
	}
	if s.cfg.GenerateFeed {
		write(strings.TrimPrefix(feedRoute, "/"), categoryFeed, []byte(buildAtomFeed(s.cfg.Site, buildCtx.Posts, s.cfg.FeedLimit, buildCtx.GeneratedAt)))
	}
	if s.cfg.GenerateSearch {
		data, err := buildSearchIndex(buildCtx.Posts)
		if err != nil {
			errs = append(errs, fmt.Errorf("generator: encode search index: %w", err))
		} else {
			write(searchIndexPath, categorySearch, data)
		}
	}
	return errors.Join(errs...)
}
