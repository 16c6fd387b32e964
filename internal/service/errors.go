package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternalServer       = errors.New("internal server error")

	ErrBoardNotFound     = errors.New("board not found")
	ErrForbidden         = errors.New("board belongs to another user")
	ErrNoImage           = errors.New("no image selected")
	ErrInvalidImage      = errors.New("invalid image")
	ErrImageTooLarge     = errors.New("image dimensions exceed the canvas limit")
	ErrInvalidCanvasSize = errors.New("invalid canvas size")
	ErrInvalidDocument   = errors.New("invalid points document")
)
