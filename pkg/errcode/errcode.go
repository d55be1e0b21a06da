package errcode

import "fmt"

// Error represents a business error
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("errcode: %d, msg: %s", e.Code, e.Msg)
}

// New creates a new error with code and message
func New(code int, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap wraps an error with additional context
func (e *Error) Wrap(err error) *Error {
	if err == nil {
		return e
	}
	return &Error{
		Code: e.Code,
		Msg:  fmt.Sprintf("%s: %v", e.Msg, err),
	}
}

// Common error codes
var (
	// Success
	ErrSuccess = New(0, "success")

	// Common errors (1xxx)
	ErrInvalidParam     = New(1001, "invalid parameter")
	ErrInternal         = New(1002, "internal error")
	ErrStoreUnavailable = New(1003, "store unavailable")

	// Session errors (2xxx)
	ErrSignInFailed = New(2001, "sign in failed")
	ErrTokenInvalid = New(2002, "token invalid")
	ErrTokenExpired = New(2003, "token expired")
	ErrNoSession    = New(2004, "no active session")

	// Conversation errors (3xxx)
	ErrConvNotFound         = New(3001, "conversation not found")
	ErrNoActiveConversation = New(3002, "no active conversation")
	ErrChatCreateFailed     = New(3003, "chat creation failed")
	ErrGroupTooSmall        = New(3004, "group needs at least 2 other members")
	ErrGroupNameRequired    = New(3005, "group name required")

	// Message errors (4xxx)
	ErrSendFailed = New(4001, "message send failed")
	ErrLoadFailed = New(4002, "message load failed")

	// Feed errors (5xxx)
	ErrFeedDialFailed = New(5001, "feed connection failed")
	ErrFeedClosed     = New(5002, "feed subscription closed")
)
