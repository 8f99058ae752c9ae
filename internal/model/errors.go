package model

import (
	"errors"
	"net/http"
)

// Sentinel errors for use with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")
)

// StorageError indicates the local store could not complete a read or write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string        { return e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error        { return e.Err }
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
func (e *StorageError) StatusCode() int      { return http.StatusInternalServerError }

// ValidationError indicates a caller supplied unusable input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ValidationError) StatusCode() int      { return http.StatusBadRequest }

// NotFoundError indicates a referenced record does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string        { return e.Message }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
func (e *NotFoundError) StatusCode() int      { return http.StatusNotFound }
