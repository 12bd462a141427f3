package textrdf

import (
	"errors"

	"github.com/soundprediction/go-textrdf/pkg/linker"
)

var (
	// ErrConfiguration reports an invalid or missing setting, detected at
	// construction time.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrService reports a failure in an external backend (extraction or
	// linking).
	ErrService = errors.New("service error")

	// ErrParse reports malformed structured output from the language
	// model.
	ErrParse = errors.New("parse error")

	// ErrValidation reports a structured result that failed schema rules.
	ErrValidation = errors.New("validation error")

	// ErrAllWindowsFailed reports a document run in which no window
	// produced a usable result.
	ErrAllWindowsFailed = errors.New("all windows failed")

	// ErrEmptyMerge reports a merge over zero results.
	ErrEmptyMerge = errors.New("nothing to merge")

	// ErrDisambiguation reports a forced-choice reply that could not
	// select a linking candidate.
	ErrDisambiguation = linker.ErrDisambiguation
)
