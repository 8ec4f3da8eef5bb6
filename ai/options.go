package ai

import "context"

// StreamFunc receives generated output incrementally.
// Returning an error aborts generation.
type StreamFunc func(ctx context.Context, chunk []byte) error

// GenerateOptions holds per-call generation settings.
// A nil Temperature or zero MaxTokens means the provider default applies.
type GenerateOptions struct {
	Temperature *float64
	MaxTokens   int
	JSON        bool
	System      string
	Stream      StreamFunc
}

// GenerateOption configures a single Generate call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &t
	}
}

// WithMaxTokens caps the length of the reply.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithJSON asks the model to reply with a JSON document.
func WithJSON() GenerateOption {
	return func(o *GenerateOptions) {
		o.JSON = true
	}
}

// WithSystem sets a system message sent ahead of the prompt.
func WithSystem(system string) GenerateOption {
	return func(o *GenerateOptions) {
		o.System = system
	}
}

// WithStream delivers the reply token by token to fn as it is generated.
// Generate still returns the complete reply.
func WithStream(fn StreamFunc) GenerateOption {
	return func(o *GenerateOptions) {
		o.Stream = fn
	}
}

// ApplyGenerateOptions folds opts into a GenerateOptions value.
func ApplyGenerateOptions(opts ...GenerateOption) GenerateOptions {
	var o GenerateOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
