package assets

import (
	"errors"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

var (
	// ErrBuildFailed indicates esbuild reported one or more errors
	ErrBuildFailed = errors.New("esbuild failed with errors")
	// ErrInvalidConfig indicates the compiler configuration is incomplete or inconsistent
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidAssetName indicates an asset name escapes the output directory
	ErrInvalidAssetName = errors.New("invalid asset name")
)

// BuildError carries the messages esbuild reported for a failed build.
type BuildError struct {
	Messages []api.Message
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 0 {
		return ErrBuildFailed.Error()
	}
	first := e.Messages[0]
	text := first.Text
	if first.Location != nil {
		text = fmt.Sprintf("%s:%d:%d: %s", first.Location.File, first.Location.Line, first.Location.Column, first.Text)
	}
	if len(e.Messages) == 1 {
		return fmt.Sprintf("%s: %s", ErrBuildFailed, text)
	}
	return fmt.Sprintf("%s: %s (and %d more)", ErrBuildFailed, text, len(e.Messages)-1)
}

func (e *BuildError) Unwrap() error {
	return ErrBuildFailed
}

// Formatted renders the messages the way the esbuild CLI prints them.
func (e *BuildError) Formatted() []string {
	return api.FormatMessages(e.Messages, api.FormatMessagesOptions{
		Kind: api.ErrorMessage,
	})
}
