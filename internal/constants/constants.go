package constants

// audit actions
const (
	Create = "create"
	Update = "update"
	Delete = "delete"
	Rate   = "rate"
)

const (
	BooksCollection     = "books"
	AuditLogsCollection = "audit_logs"
)
