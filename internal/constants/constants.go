package constants

// structured log field names
const (
	LOG_REQUEST_ID = "request_id"
	LOG_METHOD     = "method"
	LOG_URI        = "uri"
	LOG_USER_AGENT = "user_agent"
	LOG_REMOTE_ADR = "remote_addr"
	LOG_USER       = "remote_user"
	LOG_REFERER    = "referer"
)

// query parameter names
const (
	QUERY_PARAMETER_PROJECT = "project"
)

// environment variable names
const (
	EnvVarTerminationFile = "TERMINATION_MESSAGE_FILE"
)
