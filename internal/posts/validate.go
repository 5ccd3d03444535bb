package posts

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrInvalidPost is matched by every ValidationError.
	ErrInvalidPost = errors.New("posts: invalid post")
	// ErrDuplicatePermalink reports two posts rendering to the same URL.
	ErrDuplicatePermalink = errors.New("posts: duplicate permalink")
)

// Issue is a single failed rule.
type Issue struct {
	Field   string
	Message string
}

// ValidationError lists every issue found in one file.
type ValidationError struct {
	Path   string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidPost }

// Validate checks the front matter rules every post must satisfy: a title,
// a valid date, and non-blank category and tag names.
func Validate(post *Post) error {
	if post == nil {
		return &ValidationError{Issues: []Issue{{Field: "post", Message: "is nil"}}}
	}
	err := validation.ValidateStruct(post,
		validation.Field(&post.Title,
			validation.Required.Error("title is required"),
		),
		validation.Field(&post.Date,
			validation.By(func(any) error {
				if post.FrontMatter.DateText != "" {
					return validation.NewError("validation_date_invalid", fmt.Sprintf("%q is not a valid date", post.FrontMatter.DateText))
				}
				if post.Date.IsZero() {
					return validation.NewError("validation_date_required", "date is required")
				}
				return nil
			}),
		),
		validation.Field(&post.Categories,
			validation.Each(validation.Required.Error("category names cannot be blank")),
		),
		validation.Field(&post.Tags,
			validation.Each(validation.Required.Error("tag names cannot be blank")),
		),
	)
	return asValidationError(post.SourcePath, err)
}

// ValidatePage checks that a tab page has a title.
func ValidatePage(page *Page) error {
	err := validation.ValidateStruct(page,
		validation.Field(&page.Title, validation.Required.Error("title is required")),
	)
	return asValidationError(page.SourcePath, err)
}

// ValidateAll validates every post, checks permalink uniqueness under
// pattern, and joins all failures.
func ValidateAll(posts []*Post, pattern string, schema *SchemaValidator) error {
	var errs []error
	for _, post := range posts {
		if err := Validate(post); err != nil {
			errs = append(errs, err)
		}
		if schema != nil {
			if err := schema.Validate(post.SourcePath, post.FrontMatter.Raw); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := AssignPermalinks(pattern, posts); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func asValidationError(path string, err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Path: path, Issues: []Issue{{Field: "post", Message: err.Error()}}}
	}
	out := &ValidationError{Path: path}
	for field, fieldErr := range fieldErrs {
		out.Issues = append(out.Issues, Issue{Field: field, Message: fieldErr.Error()})
	}
	sort.Slice(out.Issues, func(i, j int) bool { return out.Issues[i].Field < out.Issues[j].Field })
	return out
}
