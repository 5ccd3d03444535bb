package taxonomy_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-blog/internal/posts"
	"github.com/goliatone/go-blog/internal/taxonomy"
)

func post(path string, date time.Time, categories, tags []string) *posts.Post {
	return &posts.Post{SourcePath: path, Title: path, Date: date, Categories: categories, Tags: tags, Published: true}
}

func fixture() []*posts.Post {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return []*posts.Post{
		post("only", day(2024, 3, 2), []string{"Django", "ORM"}, []string{"django", "performance"}),
		post("iterator", day(2024, 3, 9), []string{"Django", "ORM"}, []string{"Django", "memory"}),
		post("about", day(2023, 12, 20), []string{"Meta"}, nil),
	}
}

func TestBuildGroupsCategoriesAndTags(t *testing.T) {
	idx := taxonomy.Build(fixture())

	if len(idx.Categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(idx.Categories))
	}
	if idx.Categories[0].Name != "Django" || idx.Categories[1].Name != "Meta" || idx.Categories[2].Name != "ORM" {
		t.Fatalf("expected categories sorted by name, got %s %s %s", idx.Categories[0].Name, idx.Categories[1].Name, idx.Categories[2].Name)
	}

	django, ok := idx.Category("django")
	if !ok {
		t.Fatal("expected django category lookup by slug")
	}
	if django.Count() != 2 || django.Posts[0].SourcePath != "iterator" {
		t.Fatalf("expected newest first posts in category, got %d", django.Count())
	}
	if len(django.Children) != 1 || django.Children[0].Slug != "orm" {
		t.Fatalf("expected ORM as subcategory, got %+v", django.Children)
	}

	top := idx.TopCategories()
	if len(top) != 2 {
		t.Fatalf("expected Django and Meta as top categories, got %d", len(top))
	}

	tag, ok := idx.Tag("django")
	if !ok || tag.Count() != 2 {
		t.Fatalf("expected tag spellings to merge by slug, got %+v", tag)
	}
	if tag.Name != "Django" {
		t.Fatalf("expected newest post to name the tag, got %q", tag.Name)
	}
	if trending := idx.TrendingTags(1); len(trending) != 1 || trending[0].Slug != "django" {
		t.Fatalf("unexpected trending tags %+v", trending)
	}
	if _, ok := idx.Tag("missing"); ok {
		t.Fatal("unexpected tag")
	}
}

func TestBuildArchives(t *testing.T) {
	idx := taxonomy.Build(fixture())

	if len(idx.Archives) != 2 {
		t.Fatalf("expected 2 years, got %d", len(idx.Archives))
	}
	y2024 := idx.Archives[0]
	if y2024.Year != 2024 || y2024.Count != 2 || len(y2024.Months) != 1 {
		t.Fatalf("unexpected 2024 archive %+v", y2024)
	}
	if y2024.Months[0].Month != time.March || y2024.Months[0].Posts[0].SourcePath != "iterator" {
		t.Fatalf("unexpected March archive %+v", y2024.Months[0])
	}
	if idx.Archives[1].Year != 2023 {
		t.Fatalf("expected 2023 second, got %d", idx.Archives[1].Year)
	}
}

func TestBuildEmpty(t *testing.T) {
	idx := taxonomy.Build(nil)
	if len(idx.Categories) != 0 || len(idx.Tags) != 0 || len(idx.Archives) != 0 {
		t.Fatal("expected empty index")
	}
}
