package interfaces

import "context"

// TextGenerator is the external language-model collaborator.
// It is best-effort: callers treat any error as an empty answer.
type TextGenerator interface {
	// Generate returns free text for the prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// Name identifies the provider in logs
	Name() string
}
