package session

import "fmt"

// ErrSessionNotFound returned when an operation names a session absent from
// the registry. Expected in normal operation since sessions can vanish
// between client requests.
var ErrSessionNotFound = fmt.Errorf("session not found")

// ErrInvalidCredential returned when session creation is attempted with an
// empty or malformed credential
var ErrInvalidCredential = fmt.Errorf("invalid credential")
