package errs

// CallableError is the error object of the callable protocol.
type CallableError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// CallableErrorBody is the full error response of the callable protocol:
//
//	{"error": {"status": "PERMISSION_DENIED", "message": "..."}}
type CallableErrorBody struct {
	Error CallableError `json:"error"`
}

// NewCallableErrorBody builds the callable error envelope for kind.
func NewCallableErrorBody(kind Kind, message string, details any) CallableErrorBody {
	return CallableErrorBody{Error: CallableError{
		Status:  kind.CallableStatus(),
		Message: message,
		Details: details,
	}}
}
