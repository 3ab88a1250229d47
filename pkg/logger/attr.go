package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Trigger records the fired trigger under the key "trigger".
func Trigger(name string) slog.Attr {
	return slog.String("trigger", name)
}

// State records a state name under the key "state".
func State(name string) slog.Attr {
	return slog.String("state", name)
}

// Transition groups the source and destination of a transition.
func Transition(from, to string) slog.Attr {
	return Group("transition", slog.String("from", from), slog.String("to", to))
}

// SnapshotID records a snapshot identifier under the key "snapshot_id".
// An empty id yields an empty Attr.
func SnapshotID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("snapshot_id", id)
}

// PersistentID records the id of the newest snapshot of an entity.
// An empty id yields an empty Attr.
func PersistentID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("persistent_id", id)
}

// Phase records the snapshot phase ("before" or "after") under the key "phase".
func Phase(phase string) slog.Attr {
	return slog.String("phase", phase)
}

// Entity records the entity kind, e.g. "disbursement".
func Entity(kind string) slog.Attr {
	return slog.String("entity", kind)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
