package themes

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-blog/internal/posts"
)

var (
	registerFilters sync.Once
	registerErr     error
)

// ensureFilters installs the blog filters in pongo2's global registry and
// reports registration failures on every call.
func ensureFilters() error {
	registerFilters.Do(func() {
		registerErr = registerFilterSet(pongo2.RegisterFilter)
	})
	return registerErr
}

type filterRegistrar func(name string, fn pongo2.FilterFunction) error

func registerFilterSet(register filterRegistrar) error {
	filters := []struct {
		name string
		fn   pongo2.FilterFunction
	}{
		{"date_to_xmlschema", filterDateToXMLSchema},
		{"date_to_string", filterDateToString},
		{"term_slug", filterTermSlug},
	}
	var errs []error
	for _, f := range filters {
		if err := register(f.name, f.fn); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("themes: register filters: %w", err)
	}
	return nil
}

func filterDateToXMLSchema(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	ts, ok := in.Interface().(time.Time)
	if !ok {
		return nil, &pongo2.Error{Sender: "filter:date_to_xmlschema", OrigError: fmt.Errorf("expected time.Time, got %T", in.Interface())}
	}
	return pongo2.AsValue(ts.Format(time.RFC3339)), nil
}

func filterDateToString(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	ts, ok := in.Interface().(time.Time)
	if !ok {
		return nil, &pongo2.Error{Sender: "filter:date_to_string", OrigError: fmt.Errorf("expected time.Time, got %T", in.Interface())}
	}
	return pongo2.AsValue(ts.Format("Jan 2, 2006")), nil
}

func filterTermSlug(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(posts.Slugify(in.String())), nil
}
