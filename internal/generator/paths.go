package generator

import (
	"path"
	"strconv"
	"strings"
)

// buildOutputPath maps a route to the file that serves it: directory-style
// routes get an index.html, routes with an extension are written as is.
func buildOutputPath(route string) string {
	route = strings.TrimSpace(route)
	clean := strings.Trim(route, " \t\r\n/")
	if clean == "" {
		return "index.html"
	}
	clean = strings.TrimPrefix(path.Clean("/"+clean), "/")
	if strings.HasSuffix(route, "/") || path.Ext(clean) == "" {
		return path.Join(clean, "index.html")
	}
	return clean
}

// withBase prefixes a root-relative route with the site baseurl.
func withBase(baseURL, route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return strings.TrimRight(baseURL, "/") + route
}

func homeRoute(page int) string {
	if page <= 1 {
		return "/"
	}
	return "/page" + strconv.Itoa(page) + "/"
}

const (
	categoriesRoute = "/categories/"
	tagsRoute       = "/tags/"
	archivesRoute   = "/archives/"
)

// trendingTagLimit caps the sidebar tag list.
const trendingTagLimit = 10

func categoryRoute(slug string) string { return categoriesRoute + slug + "/" }

func tagRoute(slug string) string { return tagsRoute + slug + "/" }
