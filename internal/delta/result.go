package delta

// ErrorDetail carries the human-readable failure message inside a Result.
type ErrorDetail struct {
	Message string `json:"message"`
}

// Result is the normalized outcome of every adapter operation: exactly one of
// Result/Error is populated. The JSON shape matches the venue's own envelope
// ({success, result} / {success, error:{message}}) and is forwarded verbatim
// to HTTP callers.
type Result struct {
	Success bool         `json:"success"`
	Result  any          `json:"result,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// Ok builds a success Result carrying payload.
func Ok(payload any) Result {
	return Result{Success: true, Result: payload}
}

// Fail builds a failure Result carrying message.
func Fail(message string) Result {
	return Result{Success: false, Error: &ErrorDetail{Message: message}}
}

// Message returns the failure message, or "" for a success.
func (r Result) Message() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Message
}
