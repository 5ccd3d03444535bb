package generator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// ManifestFileName is written at the output root after every build.
	ManifestFileName    = ".blog-manifest.json"
	manifestFileVersion = 1
)

// buildManifest stores metadata about the last successful build to support
// incremental runs and stale output pruning.
type buildManifest struct {
	Version     int                      `json:"version"`
	GeneratedAt time.Time                `json:"generated_at"`
	Pages       map[string]manifestEntry `json:"pages"`
	Assets      map[string]manifestEntry `json:"assets"`
}

type manifestEntry struct {
	Output   string `json:"output"`
	Category string `json:"category"`
	Source   string `json:"source,omitempty"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

func newBuildManifest() *buildManifest {
	return &buildManifest{
		Version: manifestFileVersion,
		Pages:   map[string]manifestEntry{},
		Assets:  map[string]manifestEntry{},
	}
}

func parseManifest(data []byte) (*buildManifest, error) {
	if len(data) == 0 {
		return newBuildManifest(), nil
	}
	var ordered orderedManifest
	if err := json.Unmarshal(data, &ordered); err != nil {
		return nil, fmt.Errorf("generator: parse manifest: %w", err)
	}
	manifest := newBuildManifest()
	manifest.GeneratedAt = ordered.GeneratedAt
	if ordered.Version != 0 {
		manifest.Version = ordered.Version
	}
	for _, entry := range ordered.Pages {
		manifest.Pages[entry.Output] = entry
	}
	for _, entry := range ordered.Assets {
		manifest.Assets[entry.Output] = entry
	}
	return manifest, nil
}

type orderedManifest struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Pages       []manifestEntry `json:"pages"`
	Assets      []manifestEntry `json:"assets"`
}

// marshal writes entries sorted by output path so the file is deterministic.
func (m *buildManifest) marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	ordered := orderedManifest{
		Version:     m.Version,
		GeneratedAt: m.GeneratedAt,
		Pages:       sortedEntries(m.Pages),
		Assets:      sortedEntries(m.Assets),
	}
	if ordered.Version == 0 {
		ordered.Version = manifestFileVersion
	}
	return json.MarshalIndent(ordered, "", "  ")
}

func sortedEntries(entries map[string]manifestEntry) []manifestEntry {
	out := make([]manifestEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Output < out[j].Output })
	return out
}

func (m *buildManifest) bucket(category string) map[string]manifestEntry {
	if category == string(categoryAsset) {
		return m.Assets
	}
	return m.Pages
}

func (m *buildManifest) set(entry manifestEntry) {
	if m == nil {
		return
	}
	if m.Pages == nil {
		m.Pages = map[string]manifestEntry{}
	}
	if m.Assets == nil {
		m.Assets = map[string]manifestEntry{}
	}
	m.bucket(entry.Category)[entry.Output] = entry
}

func (m *buildManifest) lookup(output string) (manifestEntry, bool) {
	if m == nil {
		return manifestEntry{}, false
	}
	if entry, ok := m.Pages[output]; ok {
		return entry, true
	}
	entry, ok := m.Assets[output]
	return entry, ok
}

// unchanged reports whether the previous build wrote the same bytes to the
// same output.
func (m *buildManifest) unchanged(entry manifestEntry) bool {
	previous, ok := m.lookup(entry.Output)
	if !ok {
		return false
	}
	return previous.Checksum == entry.Checksum && strings.TrimSpace(previous.Output) == strings.TrimSpace(entry.Output)
}

// stale lists outputs recorded in m that next no longer produces.
func (m *buildManifest) stale(next *buildManifest) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, bucket := range []map[string]manifestEntry{m.Pages, m.Assets} {
		for output := range bucket {
			if _, ok := next.lookup(output); !ok {
				out = append(out, output)
			}
		}
	}
	sort.Strings(out)
	return out
}
