package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrNilDefinition = errors.New("definition cannot be nil")
	ErrNoPersister   = errors.New("no persister configured")
)

// ConfigurationError reports a malformed definition or option set. It is fatal
// and never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "statemachine configuration: " + e.Reason
}

func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IllegalTransitionError indicates that no transition row for the trigger lists
// the current state as a source. No hooks ran.
type IllegalTransitionError struct {
	Trigger   string
	StateName string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for trigger '%s'", e.StateName, e.Trigger)
}

func NewIllegalTransitionError(trigger string, state State) *IllegalTransitionError {
	return &IllegalTransitionError{
		Trigger:   trigger,
		StateName: state.Name(),
	}
}

// GuardRejectedError indicates a guard returned false. The state is unchanged.
type GuardRejectedError struct {
	Trigger   string
	StateName string
	Guard     string
}

func (e *GuardRejectedError) Error() string {
	return fmt.Sprintf("transition from state '%s' for trigger '%s' was rejected by guard '%s'", e.StateName, e.Trigger, e.Guard)
}

func NewGuardRejectedError(trigger string, state State, guard string) *GuardRejectedError {
	return &GuardRejectedError{
		Trigger:   trigger,
		StateName: state.Name(),
		Guard:     guard,
	}
}

// PersistenceFault wraps an error raised by a persister. When Phase is PhaseAfter
// the in-memory state has already changed.
type PersistenceFault struct {
	Op      string // "store" or "retrieve"
	Trigger string
	Phase   Phase
	Err     error
}

func (e *PersistenceFault) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("persistence %s failed for trigger '%s' (%s): %v", e.Op, e.Trigger, e.Phase, e.Err)
	}
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceFault) Unwrap() error { return e.Err }

// SerializationFault indicates the entity could not be represented in the
// persister's format. It is a kind of persistence fault.
type SerializationFault struct {
	Reason string
	Err    error
}

func (e *SerializationFault) Error() string {
	if e.Err == nil {
		return "serialization failed: " + e.Reason
	}
	return fmt.Sprintf("serialization failed: %s: %v", e.Reason, e.Err)
}

func (e *SerializationFault) Unwrap() error { return e.Err }

func NewSerializationFault(reason string, err error) *SerializationFault {
	return &SerializationFault{Reason: reason, Err: err}
}

// HookError wraps a failure returned by a consumer-supplied lifecycle hook.
type HookError struct {
	Hook    string
	Trigger string
	Err     error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook failed for trigger '%s': %v", e.Hook, e.Trigger, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

func IsIllegalTransitionError(err error) bool {
	var e *IllegalTransitionError
	return errors.As(err, &e)
}

func IsGuardRejectedError(err error) bool {
	var e *GuardRejectedError
	return errors.As(err, &e)
}

// IsPersistenceFault reports persistence and serialization faults alike.
func IsPersistenceFault(err error) bool {
	var pf *PersistenceFault
	if errors.As(err, &pf) {
		return true
	}
	return IsSerializationFault(err)
}

func IsSerializationFault(err error) bool {
	var e *SerializationFault
	return errors.As(err, &e)
}

func IsHookError(err error) bool {
	var e *HookError
	return errors.As(err, &e)
}

// IsBusinessRuleError reports the expected outcomes callers branch on: an illegal
// trigger or a rejected guard.
func IsBusinessRuleError(err error) bool {
	return IsIllegalTransitionError(err) || IsGuardRejectedError(err)
}
