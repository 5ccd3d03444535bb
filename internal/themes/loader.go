package themes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// ErrLayoutNotFound is returned when no layer provides a layout.
var ErrLayoutNotFound = errors.New("themes: layout not found")

// layeredLoader implements pongo2.TemplateLoader over an ordered list of
// filesystems; the first layer holding a file wins.
type layeredLoader struct {
	layers []fs.FS
}

func (l *layeredLoader) Abs(_, name string) string {
	clean := path.Clean("/" + strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	return strings.TrimPrefix(clean, "/")
}

func (l *layeredLoader) Get(name string) (io.Reader, error) {
	for _, layer := range l.layers {
		data, err := fs.ReadFile(layer, name)
		if err == nil {
			return bytes.NewReader(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("themes: read %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
}

func (l *layeredLoader) exists(name string) bool {
	for _, layer := range l.layers {
		if info, err := fs.Stat(layer, name); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
