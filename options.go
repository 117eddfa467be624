package answer

// Options contains configuration for a GenerateAnswer call.
type Options struct {
	// Model overrides the provider's resolved model.
	Model string
	// SystemPrompt overrides the provider's fixed system instruction.
	SystemPrompt string
	// AutoCleanup runs Call.Cleanup right after the terminal event is delivered.
	AutoCleanup bool
}

// Option is a functional option for configuring GenerateAnswer calls.
type Option func(*Options)

// WithModel sets the model to use for the request.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithSystemPrompt replaces the system instruction sent with the prompt.
func WithSystemPrompt(prompt string) Option {
	return func(o *Options) {
		o.SystemPrompt = prompt
	}
}

// WithAutoCleanup schedules cleanup as soon as the call completes.
func WithAutoCleanup() Option {
	return func(o *Options) {
		o.AutoCleanup = true
	}
}

// ApplyOptions applies functional options to an Options struct.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
