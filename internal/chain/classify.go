package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed remote call.
type ErrorKind int

const (
	// ErrGeneric covers transport failures and unrecognized provider errors.
	ErrGeneric ErrorKind = iota
	// ErrRangeLimit means the provider rejected the requested block span.
	ErrRangeLimit
	// ErrIndexing means the provider has not finished indexing the range yet.
	ErrIndexing
)

func (k ErrorKind) String() string {
	switch k {
	case ErrRangeLimit:
		return "range_limit"
	case ErrIndexing:
		return "indexing"
	default:
		return "generic"
	}
}

// ClassifiedError wraps a remote error with its classification.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Known provider error signatures. Matched case-insensitively against the
// full error text, including joined multi-endpoint failures.
var (
	rangeLimitMarkers = []string{
		"block range",
		"range limit",
		"max block span",
		"exceed maximum block",
		"query returned more than",
	}
	indexingMarkers = []string{
		"indexing",
		"index is in progress",
		"not indexed",
		"still syncing",
	}
)

// Classify inspects an error's text and wraps it with a classification.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	text := strings.ToLower(err.Error())
	for _, marker := range rangeLimitMarkers {
		if strings.Contains(text, marker) {
			return &ClassifiedError{Kind: ErrRangeLimit, Err: err}
		}
	}
	for _, marker := range indexingMarkers {
		if strings.Contains(text, marker) {
			return &ClassifiedError{Kind: ErrIndexing, Err: err}
		}
	}
	return &ClassifiedError{Kind: ErrGeneric, Err: err}
}

// IsRangeLimit reports whether err classifies as a provider span quota hit.
func IsRangeLimit(err error) bool {
	var classified *ClassifiedError
	return errors.As(err, &classified) && classified.Kind == ErrRangeLimit
}

// IsIndexing reports whether err classifies as an unfinished provider index.
func IsIndexing(err error) bool {
	var classified *ClassifiedError
	return errors.As(err, &classified) && classified.Kind == ErrIndexing
}
