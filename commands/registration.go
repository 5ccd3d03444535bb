// Package commands exposes the blog command handlers to host registries and
// dispatchers.
package commands

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-command/dispatcher"

	postscmd "github.com/goliatone/go-blog/internal/commands/posts"
	staticcmd "github.com/goliatone/go-blog/internal/commands/static"
	"github.com/goliatone/go-blog/internal/di"
)

// CommandRegistry records command handlers so hosts can expose them via CLI or cron.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// CommandDispatcher subscribes command handlers to a dispatcher implementation.
type CommandDispatcher interface {
	RegisterCommand(handler any) (CommandSubscription, error)
}

// CommandSubscription allows hosts to tear down dispatcher subscriptions.
type CommandSubscription interface {
	Unsubscribe()
}

// RegistrationOptions configures how handlers are registered.
type RegistrationOptions struct {
	Registry   CommandRegistry
	Dispatcher CommandDispatcher
}

// RegistrationResult captures the registered handlers and any dispatcher subscriptions.
type RegistrationResult struct {
	Handlers      []any
	Subscriptions []CommandSubscription
}

// RegisterContainerCommands collects the handlers built by container and
// optionally registers them with a registry and a dispatcher.
func RegisterContainerCommands(container *di.Container, opts RegistrationOptions) (*RegistrationResult, error) {
	result := &RegistrationResult{
		Handlers:      make([]any, 0, 4),
		Subscriptions: make([]CommandSubscription, 0),
	}
	if container == nil {
		return result, nil
	}

	var errs error
	register := func(handler any) {
		result.Handlers = append(result.Handlers, handler)

		if opts.Registry != nil {
			if err := opts.Registry.RegisterCommand(handler); err != nil {
				errs = errors.Join(errs, err)
			}
		}
		if opts.Dispatcher != nil {
			subscription, err := opts.Dispatcher.RegisterCommand(handler)
			if err != nil {
				errs = errors.Join(errs, err)
			} else if subscription != nil {
				result.Subscriptions = append(result.Subscriptions, subscription)
			}
		}
	}

	register(container.BuildHandler())
	register(container.CheckLinksHandler())
	register(container.CleanHandler())
	register(container.NewPostHandler())

	return result, errs
}

// GlobalDispatcher subscribes handlers to the go-command process dispatcher,
// after which commands can be sent with dispatcher.Dispatch.
type GlobalDispatcher struct{}

// RegisterCommand satisfies CommandDispatcher.
func (GlobalDispatcher) RegisterCommand(handler any) (CommandSubscription, error) {
	switch h := handler.(type) {
	case *staticcmd.BuildSiteHandler:
		return dispatcher.SubscribeCommand[staticcmd.BuildSiteCommand](h), nil
	case *staticcmd.CheckLinksHandler:
		return dispatcher.SubscribeCommand[staticcmd.CheckLinksCommand](h), nil
	case *staticcmd.CleanSiteHandler:
		return dispatcher.SubscribeCommand[staticcmd.CleanSiteCommand](h), nil
	case *postscmd.NewPostHandler:
		return dispatcher.SubscribeCommand[postscmd.NewPostCommand](h), nil
	default:
		return nil, fmt.Errorf("commands: unsupported handler %T", handler)
	}
}
