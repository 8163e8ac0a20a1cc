package llm

import "errors"

// None of these leave the package through ResponseProvider; they are
// logged and replaced by heuristic output.
var (
	ErrBackendUnavailable = errors.New("language model backend unavailable")
	ErrMalformedResponse  = errors.New("malformed language model response")
	ErrTranslationRefused = errors.New("language model refused to translate")
)
