package hooks

// Config mirrors .listr.hooks.yml.
type Config struct {
	Version int         `yaml:"version"`
	Hooks   HooksConfig `yaml:"hooks"`
}

// HooksConfig groups hooks by the submission outcome that triggers them.
type HooksConfig struct {
	PostSubmit   []*HookConfig `yaml:"post_submit"`
	SubmitFailed []*HookConfig `yaml:"submit_failed"`
}

// HookConfig is a single shell command.
type HookConfig struct {
	Command    string `yaml:"command"`
	Timeout    int    `yaml:"timeout"`     // seconds
	PipeOutput bool   `yaml:"pipe_output"` // show output after submit
}

// DefaultTimeout applies when a hook sets no timeout, in seconds.
const DefaultTimeout = 30
