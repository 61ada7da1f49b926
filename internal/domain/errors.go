package domain

import "net/http"

// Error is an expected business failure. It carries a machine-readable code and
// the HTTP status the API layer answers with.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

func newError(status int, code, msg string) *Error {
	return &Error{Code: code, Message: msg, Status: status}
}

var (
	ErrInsufficientBalance = newError(http.StatusPaymentRequired, "insufficient_balance", "no crushes left")
	ErrDuplicateEdge       = newError(http.StatusConflict, "already_sent", "crush already sent to this user")
	ErrNotMatched          = newError(http.StatusForbidden, "not_matched", "you can only message your matches")
	ErrInvalidPackage      = newError(http.StatusBadRequest, "invalid_package", "unknown package")
	ErrInvalidRecipient    = newError(http.StatusBadRequest, "invalid_recipient", "cannot send to yourself")
	ErrUserNotFound        = newError(http.StatusNotFound, "user_not_found", "user not found")
	ErrBlocked             = newError(http.StatusForbidden, "blocked", "this user is not available")
	ErrEmptyMessage        = newError(http.StatusBadRequest, "empty_message", "message needs content or an image")
	ErrMessageTooLong      = newError(http.StatusBadRequest, "message_too_long", "message is too long")
	ErrMessageNotFound     = newError(http.StatusNotFound, "message_not_found", "message not found")
	ErrCapabilityRequired  = newError(http.StatusPaymentRequired, "upgrade_required", "this feature needs a premium subscription")
	ErrDailyLimitReached   = newError(http.StatusTooManyRequests, "daily_limit_reached", "daily message limit reached")
	ErrInvalidSignature    = newError(http.StatusUnauthorized, "invalid_signature", "invalid signature")
	ErrPhotoLimit          = newError(http.StatusBadRequest, "photo_limit", "photo limit reached")
	ErrPhotoNotFound       = newError(http.StatusNotFound, "photo_not_found", "photo not found")
	ErrNoSubscription      = newError(http.StatusBadRequest, "no_subscription", "no active subscription")
	ErrEmailExists         = newError(http.StatusConflict, "email_taken", "email already registered")
	ErrUsernameExists      = newError(http.StatusConflict, "username_taken", "username already taken")
	ErrInvalidCreds        = newError(http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	ErrInvalidPayload      = newError(http.StatusBadRequest, "invalid_payload", "invalid request payload")
	ErrAgeRequired         = newError(http.StatusForbidden, "age_required", "must be 18 or older")
)
