package response

import "github.com/megusto0/tgintegration/internal"

// APIResponse wraps error bodies. Successful responses return their
// documented JSON shapes directly.
type APIResponse struct {
	Error *internal.AppError `json:"error"`
}

func NewAppError(status int, reason, msg string) APIResponse {
	return APIResponse{Error: internal.NewAppError(status, reason, msg)}
}

func BadRequest(msg string) APIResponse {
	return NewAppError(400, "invalid_value", msg)
}

func Forbidden(reason string) APIResponse {
	return NewAppError(403, reason, "access denied")
}

func NotFound(msg string) APIResponse {
	return NewAppError(404, "not_found", msg)
}

func PayloadTooLarge(msg string) APIResponse {
	return NewAppError(413, "payload_too_large", msg)
}

func UnsupportedMediaType(msg string) APIResponse {
	return NewAppError(415, "unsupported_media_type", msg)
}

func Upstream(msg string) APIResponse {
	return NewAppError(502, "upstream_error", msg)
}

func InternalError(msg string) APIResponse {
	return NewAppError(500, "internal_error", msg)
}
