package postscmd

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const newPostMessageType = "blog.posts.new"

// NewPostCommand scaffolds a Markdown post with front matter.
type NewPostCommand struct {
	Title       string    `json:"title"`
	Slug        string    `json:"slug,omitempty"`
	Date        time.Time `json:"date,omitzero"`
	Categories  []string  `json:"categories,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Description string    `json:"description,omitempty"`
	Pin         bool      `json:"pin,omitempty"`
	Draft       bool      `json:"draft,omitempty"`
	// Callback receives the path of the created file, relative to the source root.
	Callback func(path string) `json:"-"`
}

// Type implements command.Message.
func (NewPostCommand) Type() string { return newPostMessageType }

// Validate enforces the rules a built post must satisfy so scaffolds always build.
func (m NewPostCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Title, validation.By(func(any) error {
			if strings.TrimSpace(m.Title) == "" {
				return validation.NewError("blog.posts.new.title_required", "title is required")
			}
			return nil
		})),
		validation.Field(&m.Categories, validation.Each(validation.By(notBlank("category")))),
		validation.Field(&m.Tags, validation.Each(validation.By(notBlank("tag")))),
	)
}

func notBlank(kind string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return validation.NewError("blog.posts.new."+kind+"_blank", kind+" names cannot be blank")
		}
		return nil
	}
}
