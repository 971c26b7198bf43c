package internal

// Identity is the Telegram user extracted from a verified Mini App payload.
type Identity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// AppError is the error body returned to clients. Reason is a short
// machine-readable code; Message never contains payloads or secrets.
type AppError struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code int, reason, msg string) *AppError {
	return &AppError{Code: code, Reason: reason, Message: msg}
}
