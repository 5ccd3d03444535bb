package generator

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const feedRoute = "/feed.xml"

// buildAtomFeed renders the newest posts as an Atom document. The feed's
// updated stamp comes from its newest entry so unchanged content yields an
// unchanged file.
func buildAtomFeed(site SiteInfo, list []*PostData, limit int, generatedAt time.Time) string {
	siteURL := site.SiteURL()
	feedID := siteURL + feedRoute
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	updatedAt := generatedAt
	for i, pd := range list {
		stamp := postUpdated(pd)
		if i == 0 || stamp.After(updatedAt) {
			updatedAt = stamp
		}
	}

	title := strings.TrimSpace(site.Title)
	if title == "" {
		title = siteURL
	}
	lang := strings.TrimSpace(site.Lang)
	if lang == "" {
		lang = "en"
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<feed xmlns="http://www.w3.org/2005/Atom" xml:lang="%s">`+"\n", escapeXMLAttr(lang)))
	builder.WriteString(fmt.Sprintf("  <id>%s</id>\n", escapeXML(feedID)))
	builder.WriteString(fmt.Sprintf("  <title>%s</title>\n", escapeXML(title)))
	if sub := strings.TrimSpace(site.Tagline); sub != "" {
		builder.WriteString(fmt.Sprintf("  <subtitle>%s</subtitle>\n", escapeXML(sub)))
	}
	builder.WriteString(fmt.Sprintf("  <updated>%s</updated>\n", updatedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf(`  <link rel="alternate" type="text/html" href="%s/" />`+"\n", escapeXMLAttr(siteURL)))
	builder.WriteString(fmt.Sprintf(`  <link rel="self" type="application/atom+xml" href="%s" />`+"\n", escapeXMLAttr(feedID)))
	if author := strings.TrimSpace(site.Author); author != "" {
		builder.WriteString(fmt.Sprintf("  <author><name>%s</name></author>\n", escapeXML(author)))
	}
	for _, pd := range list {
		post := pd.Post
		link := siteURL + post.Permalink
		builder.WriteString("  <entry>\n")
		builder.WriteString(fmt.Sprintf("    <id>%s</id>\n", escapeXML(link)))
		builder.WriteString(fmt.Sprintf("    <title>%s</title>\n", escapeXML(post.Title)))
		builder.WriteString(fmt.Sprintf(`    <link rel="alternate" type="text/html" href="%s" />`+"\n", escapeXMLAttr(link)))
		builder.WriteString(fmt.Sprintf("    <published>%s</published>\n", post.Date.UTC().Format(time.RFC3339)))
		builder.WriteString(fmt.Sprintf("    <updated>%s</updated>\n", postUpdated(pd).UTC().Format(time.RFC3339)))
		if author := strings.TrimSpace(post.Author); author != "" {
			builder.WriteString(fmt.Sprintf("    <author><name>%s</name></author>\n", escapeXML(author)))
		}
		for _, category := range post.Categories {
			builder.WriteString(fmt.Sprintf(`    <category term="%s" />`+"\n", escapeXMLAttr(category)))
		}
		for _, tag := range post.Tags {
			builder.WriteString(fmt.Sprintf(`    <category term="%s" />`+"\n", escapeXMLAttr(tag)))
		}
		if pd.Excerpt != "" {
			builder.WriteString(fmt.Sprintf("    <summary>%s</summary>\n", escapeXML(pd.Excerpt)))
		}
		builder.WriteString(fmt.Sprintf(`    <content type="html">%s</content>`+"\n", escapeXML(string(pd.HTML))))
		builder.WriteString("  </entry>\n")
	}
	builder.WriteString(`</feed>` + "\n")
	return builder.String()
}

func postUpdated(pd *PostData) time.Time {
	if !pd.Post.LastModified.IsZero() {
		return pd.Post.LastModified
	}
	return pd.Post.Date
}

func escapeXML(value string) string {
	return html.EscapeString(value)
}

func escapeXMLAttr(value string) string {
	return html.EscapeString(value)
}
