package generator

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/goliatone/go-blog/internal/markdown"
)

const searchIndexPath = "assets/js/data/search.json"

type searchEntry struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Categories string `json:"categories"`
	Tags       string `json:"tags"`
	Date       string `json:"date"`
	Snippet    string `json:"snippet"`
	Content    string `json:"content"`
}

// buildSearchIndex serializes the published posts for the client-side search.
func buildSearchIndex(list []*PostData) ([]byte, error) {
	entries := make([]searchEntry, 0, len(list))
	for _, pd := range list {
		post := pd.Post
		entries = append(entries, searchEntry{
			Title:      post.Title,
			URL:        pd.URL,
			Categories: strings.Join(post.Categories, ", "),
			Tags:       strings.Join(post.Tags, ", "),
			Date:       post.Date.Format(time.RFC3339),
			Snippet:    pd.Excerpt,
			Content:    markdown.PlainText(pd.HTML, true),
		})
	}
	return json.MarshalIndent(entries, "", "  ")
}
