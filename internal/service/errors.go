package service

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrProfileStore    = errors.New("profile store unavailable")
)
