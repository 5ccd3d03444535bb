// Package markdown renders post bodies to HTML with goldmark and derives the
// plain-text views the theme needs: excerpts, word counts and headings.
package markdown
