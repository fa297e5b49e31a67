package closure

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or invalid collaborator. It is returned
// before any training step runs.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("closure: invalid %s: %s", e.Field, e.Reason)
}

// NumericalError reports a NaN in the model output, one of its derivatives or
// a loss term. Training has diverged; the step is aborted and not retried.
type NumericalError struct {
	Quantity string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("closure: NaN @ %s", e.Quantity)
}

// ErrIncompatibleLoader is returned when adaptive resampling is configured
// with a loader that shuffles or cuts the dataset into mini-batches.
var ErrIncompatibleLoader = errors.New("closure: adaptive resampling needs full, unshuffled batches")
