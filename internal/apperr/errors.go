package apperr

import (
	"errors"
	"fmt"
)

// ValidationError - некорректные входные данные. Никогда не повторяется.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError - пользователь, сессия или запись графика не найдены
// (или принадлежат другому пользователю)
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v не найден(а)", e.Entity, e.ID)
}

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidStateError - операция недопустима в текущем состоянии
type InvalidStateError struct {
	Operation string
	State     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("операция %q недопустима в состоянии %q", e.Operation, e.State)
}

func InvalidState(operation, state string) error {
	return &InvalidStateError{Operation: operation, State: state}
}

// CapacityExceededError - график превышает недельный бюджет часов
type CapacityExceededError struct {
	Requested float64
	Budget    float64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("график превышает недельный лимит: запрошено %.2fч, доступно %.2fч", e.Requested, e.Budget)
}

// PersistenceError - сбой хранилища. Пробрасывается вызывающему без повторов.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence оборачивает ошибку хранилища; nil остается nil
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsCapacityExceeded(err error) bool {
	var e *CapacityExceededError
	return errors.As(err, &e)
}

func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}
