// Package themes renders site layouts with pongo2. Layouts are looked up in
// the site's _layouts directory first, then in the configured theme, then in
// the embedded default theme.
package themes
