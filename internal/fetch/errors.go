package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout         Kind = "timeout"
	KindElementNotFound Kind = "element_not_found"
	KindNavigation      Kind = "navigation"
	KindDownload        Kind = "download"
	KindBrowser         Kind = "browser"
)

type FetchError struct {
	Kind Kind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s", e.Kind)
	}
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// fail wraps err as a FetchError, reporting deadline expiry as a timeout
// whatever step was running.
func fail(ctx context.Context, kind Kind, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &FetchError{Kind: kind, Err: err}
}
