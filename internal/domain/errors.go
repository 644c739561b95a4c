package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrInstanceNotFound   = errors.New("server instance not found")
	ErrInvalidLadder      = errors.New("invalid ladder")
	ErrServerStartTimeout = errors.New("server start timeout")
	ErrMissingOperation   = errors.New("provider returned no operation id")
	ErrMatchAlreadyEnded  = errors.New("match already completed")
)
