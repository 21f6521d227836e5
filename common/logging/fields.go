package logging

import "log/slog"

// Field names used across services so log queries stay uniform.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldUserID     = "user_id"
	FieldAlertID    = "alert_id"
	FieldSourceKind = "source_kind"
	FieldSourceID   = "source_id"
	FieldSeverity   = "severity"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
)

func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

func AlertID(id string) slog.Attr {
	return slog.String(FieldAlertID, id)
}

// SourceKind tags a record with the kind of source event (network, email).
func SourceKind(kind string) slog.Attr {
	return slog.String(FieldSourceKind, kind)
}

func SourceID(id string) slog.Attr {
	return slog.String(FieldSourceID, id)
}

func Severity(s string) slog.Attr {
	return slog.String(FieldSeverity, s)
}

func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration records an elapsed time in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error records err's message. A nil error is recorded as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
