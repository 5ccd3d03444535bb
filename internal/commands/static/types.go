package staticcmd

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/internal/linkcheck"
)

const (
	buildSiteMessageType  = "blog.static.build"
	checkLinksMessageType = "blog.static.check_links"
	cleanSiteMessageType  = "blog.static.clean"
)

// ResultCallback receives build results produced by generator operations. The callback is optional
// and is invoked synchronously from the handler when a BuildResult is available.
type ResultCallback func(ResultEnvelope)

// ResultEnvelope captures the outcome of a static command execution.
type ResultEnvelope struct {
	Result   *generator.BuildResult
	Links    *linkcheck.Report
	Metadata map[string]any
}

// LinkChecker validates the links of the built site.
type LinkChecker interface {
	Check(ctx context.Context) (*linkcheck.Report, error)
}

// BuildSiteCommand runs a generator build. Toggles widen the configured
// defaults for this run only.
type BuildSiteCommand struct {
	DryRun         bool           `json:"dry_run,omitempty"`
	Drafts         bool           `json:"drafts,omitempty"`
	Future         bool           `json:"future,omitempty"`
	Unpublished    bool           `json:"unpublished,omitempty"`
	Incremental    bool           `json:"incremental,omitempty"`
	CheckLinks     bool           `json:"check_links,omitempty"`
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (BuildSiteCommand) Type() string { return buildSiteMessageType }

// Validate rejects link checks on dry runs, which write nothing to check.
func (m BuildSiteCommand) Validate() error {
	errs := validation.Errors{}
	if m.DryRun && m.CheckLinks {
		errs["check_links"] = validation.NewError("blog.static.build.check_links_dry_run", "check_links cannot be combined with dry_run")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CheckLinksCommand checks the links of an existing build.
type CheckLinksCommand struct {
	ResultCallback ResultCallback `json:"-"`
}

// Type implements command.Message.
func (CheckLinksCommand) Type() string { return checkLinksMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (CheckLinksCommand) Validate() error { return nil }

// CleanSiteCommand clears generator artifacts from the configured storage backend.
type CleanSiteCommand struct{}

// Type implements command.Message.
func (CleanSiteCommand) Type() string { return cleanSiteMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (CleanSiteCommand) Validate() error { return nil }
