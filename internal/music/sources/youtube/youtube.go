// Package youtube recognizes YouTube links and builds the HTTP client used to
// talk to YouTube.
package youtube

import (
	"github.com/rs/zerolog"
)

// Classifier decides what kind of resource a URL points at.
type Classifier interface {
	Classify(raw string) (Kind, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(raw string) (Kind, error)

func (f ClassifierFunc) Classify(raw string) (Kind, error) { return f(raw) }

// Validator answers whether a URL can be played.
type Validator struct {
	classifier Classifier
	log        zerolog.Logger
}

// NewValidator returns a validator using Classify.
func NewValidator(log zerolog.Logger) *Validator {
	return &Validator{classifier: ClassifierFunc(Classify), log: log}
}

// NewValidatorWith returns a validator backed by c.
func NewValidatorWith(c Classifier, log zerolog.Logger) *Validator {
	return &Validator{classifier: c, log: log}
}

// Validate is true only for video and playlist URLs. It never panics.
func (v *Validator) Validate(raw string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.log.Warn().Interface("panic", r).Str("url", raw).Msg("URL classifier panicked")
			ok = false
		}
	}()

	kind, err := v.classifier.Classify(raw)
	if err != nil {
		v.log.Debug().Err(err).Str("url", raw).Msg("URL rejected")
		return false
	}

	return kind == KindVideo || kind == KindPlaylist
}
