package service

import "errors"

// ErrorKind 오류 분류 (API 오류 코드로 그대로 노출)
type ErrorKind string

const (
	KindValidation     ErrorKind = "VALIDATION_ERROR"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindAuthorization  ErrorKind = "FORBIDDEN"
	KindAuthentication ErrorKind = "UNAUTHENTICATED"
)

// Error 도메인 오류. Message는 사용자에게 그대로 보여줄 수 있는 문장
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is 메시지가 없는 sentinel(ErrValidation 등)과는 Kind만, 그 외에는 Kind와 Message 비교
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind별 sentinel: errors.Is(err, ErrValidation)
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrAuthorization  = &Error{Kind: KindAuthorization}
	ErrAuthentication = &Error{Kind: KindAuthentication}
)

func NewValidationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewAuthorizationError(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NewAuthenticationError(msg string, cause error) error {
	return &Error{Kind: KindAuthentication, Message: msg, Err: cause}
}

// KindOf 도메인 오류가 아니면 빈 문자열
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// User service specific errors
var (
	ErrUserNotFound       = NewNotFoundError("User not found")
	ErrInvalidCredentials = NewAuthenticationError("Invalid email or password", nil)
	ErrEmailTaken         = NewValidationError("Email already in use")
	ErrUsernameTaken      = NewValidationError("Username already in use")
	ErrRatingOutOfRange   = NewValidationError("Rating must be between 0 and 3000")
)

// Game service specific errors
var (
	ErrGameNotFound       = NewNotFoundError("Game not found")
	ErrInvalidPlayers     = NewValidationError("Invalid player IDs")
	ErrSelfPlay           = NewValidationError("Players cannot play against themselves")
	ErrInvalidTimeControl = NewValidationError(`Invalid time control format. Use format: "minutes+increment"`)
	ErrGameNotActive      = NewValidationError("Game is not active")
	ErrInvalidMove        = NewValidationError("Move must be a single non-empty token")
	ErrInvalidResult      = NewValidationError("Invalid game result")
	ErrNotWhitesTurn      = NewAuthorizationError("Not white's turn")
	ErrNotBlacksTurn      = NewAuthorizationError("Not black's turn")
	ErrNotAPlayer         = NewAuthorizationError("Only players can resign")
	ErrConcurrentUpdate   = NewValidationError("Game was modified concurrently, please retry")
	ErrGameBusy           = NewValidationError("Game is busy, please retry")
)
