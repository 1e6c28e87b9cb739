package logx

const (
	FieldBreaker        = "breaker"
	FieldBytes          = "bytes"
	FieldDurationMs     = "duration-ms"
	FieldError          = "error"
	FieldErrorKind      = "error-kind"
	FieldHTTPMethod     = "http-method"
	FieldHTTPResponse   = "http-response"
	FieldIP             = "ip"
	FieldKey            = "key"
	FieldMirror         = "mirror"
	FieldProvenance     = "provenance"
	FieldRequestID      = "request-id"
	FieldResponseStatus = "response-status"
	FieldSource         = "source"
	FieldStack          = "stack"
	FieldTraceID        = "trace-id"
	FieldURL            = "url"
)
