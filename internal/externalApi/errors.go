package externalApi

import "errors"

var (
	ErrNotFound     = errors.New("error not found")
	ErrUnauthorized = errors.New("error not authenticated")
	ErrUnavailable  = errors.New("error data unavailable")
)
