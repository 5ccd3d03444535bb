package staticcmd

import (
	"context"
	"errors"

	"github.com/goliatone/go-blog/internal/commands"
	"github.com/goliatone/go-blog/internal/generator"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

// LinkRecorder receives link check outcomes. Optional.
type LinkRecorder interface {
	ObserveLinkCheck(err error, broken int)
}

// BuildSiteHandler orchestrates generator builds using the shared command handler foundation.
type BuildSiteHandler struct {
	inner *commands.Handler[BuildSiteCommand]
}

// NewBuildSiteHandler constructs a handler wired to the generator and to the
// link checker run after a successful build. Commands asking for a link check
// fail before building when checker is nil.
func NewBuildSiteHandler(service generator.Service, checker LinkChecker, logger interfaces.Logger, opts ...commands.HandlerOption[BuildSiteCommand]) *BuildSiteHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg BuildSiteCommand) error {
		if service == nil {
			return errServiceRequired
		}
		if msg.CheckLinks && checker == nil {
			return errCheckerRequired
		}
		result, err := service.Build(ctx, generator.BuildOptions{
			DryRun:      msg.DryRun,
			Drafts:      msg.Drafts,
			Future:      msg.Future,
			Unpublished: msg.Unpublished,
			Incremental: msg.Incremental,
		})
		envelope := ResultEnvelope{
			Result:   result,
			Metadata: map[string]any{"operation": "build"},
		}
		if err != nil {
			invokeCallback(msg.ResultCallback, envelope)
			if errors.Is(err, generator.ErrValidation) {
				return commands.ContentError(err, "site content is invalid")
			}
			return err
		}

		if msg.CheckLinks {
			report, err := checker.Check(ctx)
			envelope.Links = report
			invokeCallback(msg.ResultCallback, envelope)
			if err != nil {
				return err
			}
			if err := report.Err(); err != nil {
				return commands.ContentError(err, "site has broken links")
			}
			return nil
		}
		invokeCallback(msg.ResultCallback, envelope)
		return nil
	}

	handlerOpts := []commands.HandlerOption[BuildSiteCommand]{
		commands.WithLogger[BuildSiteCommand](baseLogger),
		commands.WithOperation[BuildSiteCommand]("static.build"),
		commands.WithTimeout[BuildSiteCommand](0),
		commands.WithMessageFields(func(msg BuildSiteCommand) map[string]any {
			fields := map[string]any{}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			if msg.Drafts {
				fields["drafts"] = true
			}
			if msg.Future {
				fields["future"] = true
			}
			if msg.Incremental {
				fields["incremental"] = true
			}
			if msg.CheckLinks {
				fields["check_links"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BuildSiteCommand].
func (h *BuildSiteHandler) Execute(ctx context.Context, msg BuildSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CheckLinksHandler validates the links of the current output.
type CheckLinksHandler struct {
	inner *commands.Handler[CheckLinksCommand]
}

// NewCheckLinksHandler constructs a handler around checker.
func NewCheckLinksHandler(checker LinkChecker, recorder LinkRecorder, logger interfaces.Logger, opts ...commands.HandlerOption[CheckLinksCommand]) *CheckLinksHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg CheckLinksCommand) error {
		if checker == nil {
			return errCheckerRequired
		}
		report, err := checker.Check(ctx)
		if recorder != nil {
			broken := 0
			if report != nil {
				broken = len(report.Broken)
			}
			recorder.ObserveLinkCheck(err, broken)
		}
		invokeCallback(msg.ResultCallback, ResultEnvelope{
			Links:    report,
			Metadata: map[string]any{"operation": "check_links"},
		})
		if err != nil {
			return err
		}
		if err := report.Err(); err != nil {
			return commands.ContentError(err, "site has broken links")
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[CheckLinksCommand]{
		commands.WithLogger[CheckLinksCommand](baseLogger),
		commands.WithOperation[CheckLinksCommand]("static.check_links"),
		commands.WithTelemetry(commands.DefaultTelemetry[CheckLinksCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CheckLinksHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CheckLinksCommand].
func (h *CheckLinksHandler) Execute(ctx context.Context, msg CheckLinksCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CleanSiteHandler clears generator artifacts.
type CleanSiteHandler struct {
	inner *commands.Handler[CleanSiteCommand]
}

// NewCleanSiteHandler constructs a handler that cleans generator output.
func NewCleanSiteHandler(service generator.Service, logger interfaces.Logger, opts ...commands.HandlerOption[CleanSiteCommand]) *CleanSiteHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, _ CleanSiteCommand) error {
		if service == nil {
			return errServiceRequired
		}
		return service.Clean(ctx)
	}

	handlerOpts := []commands.HandlerOption[CleanSiteCommand]{
		commands.WithLogger[CleanSiteCommand](baseLogger),
		commands.WithOperation[CleanSiteCommand]("static.clean"),
		commands.WithTelemetry(commands.DefaultTelemetry[CleanSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CleanSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CleanSiteCommand].
func (h *CleanSiteHandler) Execute(ctx context.Context, msg CleanSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

var (
	errServiceRequired = errors.New("staticcmd: generator service is required")
	errCheckerRequired = errors.New("staticcmd: link checker is required")
)

func invokeCallback(cb ResultCallback, envelope ResultEnvelope) {
	if cb == nil {
		return
	}
	cb(envelope)
}
