package apperrors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrColumnExists   = errors.New("column already exists")
	ErrLastColumn     = errors.New("cannot remove the last active column")
	ErrNameTaken      = errors.New("group name already in use")
	ErrQueryRejected  = errors.New("query rejected")
	ErrFileTooLarge   = errors.New("file exceeds size ceiling")
	ErrTooManyRows    = errors.New("file exceeds row ceiling")
	ErrTooManyColumns = errors.New("file exceeds column ceiling")
)
