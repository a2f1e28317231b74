package game

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthorized    = errors.New("not organizer")
	ErrGameFinished    = errors.New("game finished")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrEmptyMessage    = errors.New("empty message")
	ErrInvalidImport   = errors.New("invalid import payload")
	ErrNameRequired    = errors.New("name required")
)
