package messaging

// Alert lifecycle subjects, published by the respond service after the
// corresponding store write succeeds. Pattern: {service}.{resource}.{action}.
const (
	SubjectAlertsCreated = "respond.alerts.created"
	SubjectAlertsUpdated = "respond.alerts.updated"
	SubjectAlertsDeleted = "respond.alerts.deleted"

	// SubjectAlertsAll matches every alert lifecycle subject.
	SubjectAlertsAll = "respond.alerts.>"
)

// Metadata keys carried as message headers.
const (
	HeaderUserID    = "Threatlens-User-Id"
	HeaderRequestID = "Threatlens-Request-Id"
)
