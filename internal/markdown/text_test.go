package markdown

import (
	"strings"
	"testing"
)

const rendered = `<h2 id="why">Why <code>.values()</code></h2>
<p>Dictionaries skip model instantiation entirely.</p>
<pre><code class="language-python">Book.objects.values("id")
</code></pre>
<h3 id="memory">Memory</h3>
<p>Fewer objects, less memory.</p>
<h5 id="deep">Too deep</h5>`

func TestExcerptSkipsCodeAndTruncates(t *testing.T) {
	got := Excerpt([]byte(rendered), 5)
	if got != "Why .values() Dictionaries skip model..." {
		t.Fatalf("unexpected excerpt %q", got)
	}
	if strings.Contains(Excerpt([]byte(rendered), 0), "Book.objects") {
		t.Fatal("excerpt must not include code blocks")
	}
}

func TestWordCountAndReadingTime(t *testing.T) {
	if got := WordCount([]byte(rendered)); got != 15 {
		t.Fatalf("expected 15 words, got %d", got)
	}
	if got := ReadingTime([]byte(rendered)); got != 1 {
		t.Fatalf("expected 1 minute, got %d", got)
	}
	long := strings.Repeat("<p>word</p>", 400)
	if got := ReadingTime([]byte(long)); got != 3 {
		t.Fatalf("expected 3 minutes for 400 words, got %d", got)
	}
}

func TestHeadings(t *testing.T) {
	headings := Headings([]byte(rendered))
	if len(headings) != 2 {
		t.Fatalf("expected h2 and h3 only, got %+v", headings)
	}
	if headings[0] != (Heading{Level: 2, ID: "why", Text: "Why .values()"}) {
		t.Fatalf("unexpected first heading %+v", headings[0])
	}
	if headings[1].Level != 3 || headings[1].ID != "memory" {
		t.Fatalf("unexpected second heading %+v", headings[1])
	}
}
