package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrOutOfStock    = errors.New("out of stock")
	ErrConflict      = errors.New("conflict")
	// ErrInvalidState is returned when an order is not in a state that allows the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrUpstream wraps payment provider and mail transport failures.
	ErrUpstream         = errors.New("upstream failure")
	ErrInvalidSignature = errors.New("invalid signature")
)

// StockErrorCode is the machine-readable code reported for a cart or order line.
type StockErrorCode string

const (
	StockNotFound   StockErrorCode = "NOT_FOUND"
	StockOutOfStock StockErrorCode = "OUT_OF_STOCK"
)

// StockError reports a product that is missing or lacks stock for a requested quantity.
type StockError struct {
	Code      StockErrorCode
	ProductID string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	if e.Code == StockNotFound {
		return fmt.Sprintf("product %s not found", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product %s: available=%d requested=%d", e.ProductID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error {
	if e.Code == StockNotFound {
		return ErrNotFound
	}
	return ErrOutOfStock
}

// Message is the human readable text shown to shoppers.
func (e *StockError) Message() string {
	if e.Code == StockNotFound {
		return "Product not found"
	}
	return fmt.Sprintf("Insufficient stock (available %d)", e.Available)
}

func NotFoundStock(productID string) *StockError {
	return &StockError{Code: StockNotFound, ProductID: productID}
}

func OutOfStock(productID string, available, requested int) *StockError {
	return &StockError{Code: StockOutOfStock, ProductID: productID, Available: available, Requested: requested}
}

// InputError carries a client-facing validation message.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Invalid builds an InputError.
func Invalid(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}
