package repository

import "errors"

var (
	ErrNotFound      = errors.New("entity not found")
	ErrCorruptRecord = errors.New("stored record cannot be decoded")
)
