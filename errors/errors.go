package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrLoopStopped        = fmt.Errorf("event loop stopped")
	ErrUnknownGroup       = fmt.Errorf("unknown group")
	ErrNotSignedIn        = fmt.Errorf("no user signed in")
	ErrSubmissionFailed   = fmt.Errorf("message submission failed")
	ErrMalformedRecord    = fmt.Errorf("malformed record")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid session token")
	ErrUnknownAvatar      = fmt.Errorf("unknown avatar seed")
	ErrInvalidDisplayName = fmt.Errorf("display name must have between 1 and 32 characters")
)
