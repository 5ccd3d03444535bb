package markdown

import (
	"strings"
	"testing"

	"github.com/goliatone/go-blog/pkg/interfaces"
)

const ormPost = "## Loading only what you need\n\n" +
	"Use `.only()` when a view touches a few columns.\n\n" +
	"```python\nBook.objects.only(\"id\", \"title\")\n```\n\n" +
	"| method | rows |\n|---|---|\n| all | models |\n\n" +
	"Footnote here[^1].\n\n[^1]: Measured on PostgreSQL.\n\n" +
	"<div class=\"note\">raw</div>\n"

func TestGoldmarkParserDefaults(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{})

	out, err := parser.Parse([]byte(ormPost))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	html := string(out)

	if !strings.Contains(html, `<h2 id="loading-only-what-you-need">`) {
		t.Fatalf("expected auto heading id, got %s", html)
	}
	if !strings.Contains(html, `<code class="language-python">`) {
		t.Fatalf("expected fenced code language class, got %s", html)
	}
	if !strings.Contains(html, "Book.objects.only(&quot;id&quot;, &quot;title&quot;)") {
		t.Fatalf("expected code block content to be preserved, got %s", html)
	}
	if !strings.Contains(html, "<table>") {
		t.Fatalf("expected GFM table, got %s", html)
	}
	if !strings.Contains(html, `class="footnotes"`) {
		t.Fatalf("expected footnotes, got %s", html)
	}
	if !strings.Contains(html, `<div class="note">raw</div>`) {
		t.Fatalf("expected raw HTML to pass through, got %s", html)
	}
}

func TestGoldmarkParserSafeMode(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{})

	out, err := parser.ParseWithOptions([]byte("<script>alert(1)</script>\n\ntext\n"), interfaces.ParseOptions{SafeMode: true})
	if err != nil {
		t.Fatalf("ParseWithOptions: %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Fatalf("expected raw HTML to be omitted in safe mode, got %s", out)
	}
}

func TestGoldmarkParserHardWraps(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{HardWraps: true})

	out, err := parser.Parse([]byte("line one\nline two\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(string(out), "<br>") {
		t.Fatalf("expected hard wrap, got %s", out)
	}
}

func TestCollectExtensionsIgnoresUnknownAndDuplicates(t *testing.T) {
	exts := collectExtensions([]string{"table", " TABLE ", "unknown", "footnote"})
	if len(exts) != 2 {
		t.Fatalf("expected 2 extensions, got %d", len(exts))
	}
	if got := collectExtensions(nil); len(got) != 3 {
		t.Fatalf("expected default extensions, got %d", len(got))
	}
}
