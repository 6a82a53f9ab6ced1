package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by origin: what subsystem produced it, not
// which Go type it happens to be.
type Kind string

const (
	KindDataLoading Kind = "data-loading"
	KindReferential Kind = "referential-integrity"
	KindGameLogic   Kind = "game-logic"
	KindStorage     Kind = "storage"
)

// Error is the classified error carried across package boundaries.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func DataLoading(cause error, format string, args ...any) *Error {
	return newError(KindDataLoading, cause, format, args...)
}

func Referential(cause error, format string, args ...any) *Error {
	return newError(KindReferential, cause, format, args...)
}

func GameLogic(cause error, format string, args ...any) *Error {
	return newError(KindGameLogic, cause, format, args...)
}

func Storage(cause error, format string, args ...any) *Error {
	return newError(KindStorage, cause, format, args...)
}

// KindOf classifies an arbitrary error, defaulting to game logic.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGameLogic
}

// Presentation is the user-facing rendering of an error.
type Presentation struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	TechnicalDetails string `json:"technicalDetails,omitempty"`
}

var kindMeta = map[Kind]Presentation{
	KindDataLoading: {
		Title:       "Data loading failed",
		Description: "The data needed to run the game could not be loaded. Retry, or report the problem if it persists.",
	},
	KindReferential: {
		Title:       "Catalog integrity problem",
		Description: "The catalog references data that does not exist. The source documents need to be fixed before the game can serve them.",
	},
	KindGameLogic: {
		Title:       "Game logic error",
		Description: "The game could not continue because of an internal error. Restart the game, or report the problem.",
	},
	KindStorage: {
		Title:       "Storage access failed",
		Description: "Reading or writing saved progress failed. Check the storage backend and try again.",
	},
}

// Present maps any error onto its user-facing shape.
func Present(err error) Presentation {
	kind := KindOf(err)
	p := kindMeta[kind]

	var e *Error
	if errors.As(err, &e) {
		p.TechnicalDetails = e.Details
		if p.TechnicalDetails == "" && e.Cause != nil {
			p.TechnicalDetails = e.Cause.Error()
		}
		if p.TechnicalDetails == "" {
			p.TechnicalDetails = e.Message
		}
		return p
	}

	if err != nil {
		p.TechnicalDetails = err.Error()
	}
	return p
}
