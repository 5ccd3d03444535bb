package markdown

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WordsPerMinute is the reading speed used by ReadingTime.
const WordsPerMinute = 180

// Heading is a rendered heading with the id goldmark assigned to it.
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// PlainText strips tags from rendered HTML. Code blocks are dropped when
// skipCode is set so excerpts do not start with source code.
func PlainText(rendered []byte, skipCode bool) string {
	z := html.NewTokenizer(bytes.NewReader(rendered))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if isSkipped(z, skipCode) {
				skip++
			}
		case html.EndTagToken:
			if skip > 0 && isSkipped(z, skipCode) {
				skip--
			}
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isSkipped(z *html.Tokenizer, skipCode bool) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	case atom.Pre:
		return skipCode
	}
	return false
}

// Excerpt returns the first words of the rendered post as plain text.
func Excerpt(rendered []byte, words int) string {
	fields := strings.Fields(PlainText(rendered, true))
	if words <= 0 || len(fields) <= words {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:words], " ") + "..."
}

// WordCount counts words in the rendered post, code included.
func WordCount(rendered []byte) int {
	return len(strings.Fields(PlainText(rendered, false)))
}

// ReadingTime returns whole minutes, at least one.
func ReadingTime(rendered []byte) int {
	minutes := (WordCount(rendered) + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Headings lists h2 through h4 in document order, the levels the table of
// contents shows.
func Headings(rendered []byte) []Heading {
	doc, err := html.Parse(bytes.NewReader(rendered))
	if err != nil {
		return nil
	}
	var out []Heading
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.DataAtom); level > 0 {
				out = append(out, Heading{
					Level: level,
					ID:    attr(n, "id"),
					Text:  strings.Join(strings.Fields(textContent(n)), " "),
				})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
