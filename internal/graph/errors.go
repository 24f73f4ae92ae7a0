package graph

import "fmt"

// ConfigError reports a malformed graph definition or a wiring defect
// detected during execution (e.g. two concurrent steps writing one field).
// It is fatal configuration, not a transient run failure.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "graph configuration: " + e.Reason
}

// StepError reports that a single step's execution failed. The executor
// treats every step outcome as terminal; retry policy, if any, lives inside
// the step implementation.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
