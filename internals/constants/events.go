package constants

// Event type tags written to the events table.
const (
	EventLoginOK   = "LOGIN_OK"
	EventLogout    = "LOGOUT"
	EventHeartbeat = "HEARTBEAT"
)

// Stable machine-readable reason codes returned in error_code.
const (
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeMachineNotRegistered = "MACHINE_NOT_REGISTERED"
	CodeSessionLimitReached  = "SESSION_LIMIT_REACHED"
	CodeUserCodeTaken        = "USER_CODE_ALREADY_EXISTS"
	CodeInvalidMaxSessions   = "INVALID_MAX_SESSIONS"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeLabNotFound          = "LAB_NOT_FOUND"
	CodeSyncAlreadyRunning   = "SYNC_ALREADY_RUNNING"
	CodeSyncRunNotFound      = "GLPI_SYNC_RUN_NOT_FOUND"
	CodeValidation           = "VALIDATION_ERROR"
	CodeFilenameRequired     = "FILENAME_REQUIRED"
	CodeInvalidCSVEncoding   = "INVALID_CSV_ENCODING"
	CodeInvalidCSVHeaders    = "INVALID_CSV_HEADERS"
	CodeCSVImportNotFound    = "CSV_IMPORT_NOT_FOUND"
	CodeFormatNotImplemented = "FORMAT_NOT_IMPLEMENTED"
)
