package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrTokenNotFound = errors.New("token not found")
	ErrInvalidToken  = errors.New("invalid token")

	// Catalog related errors
	ErrCarNotFound               = errors.New("car not found")
	ErrAdditionalServiceNotFound = errors.New("additional service not found")
	ErrDuplicateServiceID        = errors.New("additional service with this service_id already exists")
	ErrUnknownFeeKind            = errors.New("unknown fee kind")

	// Booking related errors
	ErrInvalidDateRange = errors.New("return date must be after pickup date")

	// File related errors
	ErrFileNotFound = errors.New("file not found")
	ErrFileTooLarge = errors.New("file too large")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
