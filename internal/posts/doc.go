// Package posts loads blog posts and standalone pages from Markdown files with
// YAML (or TOML) front matter, following the Jekyll conventions: posts live in
// _posts as YYYY-MM-DD-title.md, drafts in _drafts, and tabs in _tabs.
package posts
