package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrValidation     = errors.New("validation failed")
	ErrReviewNotFound = errors.New("review not found")
	ErrPersistence    = errors.New("persistence failure")
)

// ValidationError - во входных данных нет обязательных полей
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PersistenceError - сбой хранилища, Err содержит исходную ошибку драйвера
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func newValidationError(fields ...string) error {
	return &ValidationError{Fields: fields}
}

func newPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
