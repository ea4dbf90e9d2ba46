// Package logging builds the process logging pipeline: structured
// log/slog output with PHI redaction and trace correlation applied at
// the handler level.
//
// Dispensing cases carry protected health information. The redacting
// handler masks sensitive keys (patient_name, dob, ssn, and the like)
// entirely and scrubs free-text values by pattern, so DEA numbers or
// contact details never land in operational logs even when a caller
// logs a raw value. Because redaction sits in the handler chain it
// covers every logger derived from the pipeline, including children
// built with With and the slog default.
//
// The correlation handler stamps trace_id and span_id on records logged
// under an active trace, tying log lines to exported spans.
//
// Basic usage:
//
//	logger, err := logging.New(logging.FromTelemetryConfig(cfg.Telemetry.Logging))
//	if err != nil {
//		return err
//	}
//	slog.SetDefault(logger.Slog())
package logging
