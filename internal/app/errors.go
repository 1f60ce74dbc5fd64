package app

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUpstream           = errors.New("upstream model call failed")
	ErrAuditNotConfigured = errors.New("audit log store is not configured")
	ErrInvalidCredential  = errors.New("invalid username or password")
)
