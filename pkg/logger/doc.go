// Package logger builds *slog.Logger values for the engine, the snapshot
// stores and fsmctl, and names the attributes they log with.
//
// New starts from JSON at info level on stdout. WithEnvironment switches to
// the profile of a deployment environment (development logs text at debug,
// staging and production log JSON at info) and tags every record with the
// service and environment names. Later options override earlier ones.
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "fsmctl"),
//		logger.WithOutput(os.Stderr),
//		logger.WithTraceContext(),
//	)
//
// Context extractors add attributes taken from the context a record is logged
// with. WithTraceContext registers TraceExtractor, which adds the trace and
// span ids of the active OpenTelemetry span to records written with the
// *Context methods.
//
// The attribute helpers keep key names uniform across packages:
//
//	log.InfoContext(ctx, "state changed",
//		logger.Entity("disburse_request"),
//		logger.Trigger("approve"),
//		logger.Transition("submitted", "approved"),
//		logger.SnapshotID(id),
//	)
//
// Error, Errors, SnapshotID and PersistentID return an empty attribute for
// nil or empty input, which slog drops.
package logger
