package posts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// FileError ties a load failure to the file that caused it.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

// LoaderConfig describes where content lives inside the site filesystem.
type LoaderConfig struct {
	PostsDir  string
	DraftsDir string
	TabsDir   string
	// Pattern is a doublestar glob matched against paths relative to the
	// directory being walked. Defaults to "**/*.{md,markdown}".
	Pattern  string
	Exclude  []string
	Location *time.Location
}

// LoadOptions toggles optional content.
type LoadOptions struct {
	Drafts bool
}

// Loader reads posts and pages from an fs.FS rooted at the site source.
type Loader struct {
	fs  fs.FS
	cfg LoaderConfig
}

// NewLoader constructs a Loader over filesystem.
func NewLoader(filesystem fs.FS, cfg LoaderConfig) *Loader {
	if strings.TrimSpace(cfg.Pattern) == "" {
		cfg.Pattern = "**/*.{md,markdown}"
	}
	if cfg.PostsDir == "" {
		cfg.PostsDir = "_posts"
	}
	if cfg.DraftsDir == "" {
		cfg.DraftsDir = "_drafts"
	}
	if cfg.TabsDir == "" {
		cfg.TabsDir = "_tabs"
	}
	cfg.Location = locationOrUTC(cfg.Location)
	return &Loader{fs: filesystem, cfg: cfg}
}

// LoadPosts loads _posts and, when requested, _drafts. Posts are ordered
// newest first with ties broken by source path. Files that fail to parse are
// reported together in the returned error; the rest are still returned.
func (l *Loader) LoadPosts(ctx context.Context, opts LoadOptions) ([]*Post, error) {
	posts, err := l.LoadDirectory(ctx, l.cfg.PostsDir, false)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	errs := []error{err}
	if opts.Drafts {
		drafts, draftErr := l.LoadDirectory(ctx, l.cfg.DraftsDir, true)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		posts = append(posts, drafts...)
		errs = append(errs, draftErr)
	}
	SortPosts(posts)
	return posts, errors.Join(errs...)
}

// LoadDirectory walks dir and parses every file matching the pattern.
// A missing directory yields no posts.
func (l *Loader) LoadDirectory(ctx context.Context, dir string, drafts bool) ([]*Post, error) {
	var posts []*Post
	err := l.walk(ctx, dir, func(rel string, data []byte, info fs.FileInfo) error {
		post, err := NewPost(rel, data, info.ModTime(), BuildOptions{Location: l.cfg.Location, Draft: drafts})
		if err != nil {
			return err
		}
		posts = append(posts, post)
		return nil
	})
	SortPosts(posts)
	return posts, err
}

// LoadPages loads the tab pages, ordered by Order then Title.
func (l *Loader) LoadPages(ctx context.Context) ([]*Page, error) {
	var pages []*Page
	err := l.walk(ctx, l.cfg.TabsDir, func(rel string, data []byte, _ fs.FileInfo) error {
		page, err := NewPage(rel, data, l.cfg.Location)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		return nil
	})
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Order != pages[j].Order {
			return pages[i].Order < pages[j].Order
		}
		return strings.ToLower(pages[i].Title) < strings.ToLower(pages[j].Title)
	})
	return pages, err
}

func (l *Loader) walk(ctx context.Context, dir string, visit func(rel string, data []byte, info fs.FileInfo) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	root := path.Clean(strings.Trim(strings.ReplaceAll(dir, "\\", "/"), "/"))
	if root == "" {
		root = "."
	}
	if _, err := fs.Stat(l.fs, root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("posts: stat %s: %w", root, err)
	}

	var fileErrs []error
	walkErr := fs.WalkDir(l.fs, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if l.excluded(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if ok, _ := doublestar.Match(l.cfg.Pattern, rel); !ok {
			return nil
		}

		data, err := fs.ReadFile(l.fs, p)
		if err != nil {
			return fmt.Errorf("posts: read %s: %w", p, err)
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("posts: stat %s: %w", p, err)
		}
		if err := visit(p, data, info); err != nil {
			fileErrs = append(fileErrs, err)
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}
	return errors.Join(fileErrs...)
}

func (l *Loader) excluded(p string) bool {
	for _, pattern := range l.cfg.Exclude {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, path.Base(p)); ok {
			return true
		}
	}
	return false
}

// SortPosts orders posts newest first, then by source path.
func SortPosts(posts []*Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].SourcePath < posts[j].SourcePath
	})
}

// Filter returns the posts a build publishes at now.
func Filter(posts []*Post, now time.Time, future, unpublished bool) []*Post {
	out := make([]*Post, 0, len(posts))
	for _, post := range posts {
		if !post.Published && !unpublished {
			continue
		}
		if !future && post.IsFuture(now) {
			continue
		}
		out = append(out, post)
	}
	return out
}
