package cli

import "fmt"

// ConfigError reports a configuration problem, optionally naming the
// field at fault.
type ConfigError struct {
	Field   string
	Message string
}

// NewConfigError creates a ConfigError. An empty field means the
// configuration could not be loaded at all.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError wraps a failure with the command that hit it.
type CommandError struct {
	Command string
	Err     error
}

// NewCommandError creates a CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitError carries an explicit process exit code through the command
// tree. It lets a command's result, rather than a failure, select the
// exit status: dispatch scripts branch on the code without parsing
// output. Execute exits with Code after printing Message.
type ExitError struct {
	Code    int
	Message string
}

// NewExitError creates an ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func (e *ExitError) Error() string {
	return e.Message
}
