package errors

import (
	goerrors "errors"
	"fmt"
	"os"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
)

// ContextError is an error that has information on what caused it.
type ContextError interface {
	Cause() error
	Context() string

	Error() string
}

// A FriendlyError is an error with that can be directly printed to the user
// without any other context.
type FriendlyError interface {
	FriendlyMessage() string
	Error() string
}

type contextErrorImpl struct {
	err     error
	context string
}

func (err contextErrorImpl) Context() string {
	return err.context
}

func (err contextErrorImpl) Error() string {
	// If one of our children is a friendly error, print that.
	if friendlyMsg, ok := getFriendlyMessage(err); ok {
		return friendlyMsg
	}

	// Otherwise, print the full error tree.
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextErrorImpl) Cause() error {
	return err.err
}

// Unwrap lets the standard library's errors.Is and errors.As look through
// the context.
func (err contextErrorImpl) Unwrap() error {
	return err.err
}

type friendlyErrorImpl struct {
	message string
}

func (err friendlyErrorImpl) Error() string {
	return err.message
}

func (err friendlyErrorImpl) FriendlyMessage() string {
	return err.message
}

// WithContext returns an error that can be unwrapped by `Cause`.
func WithContext(context string, err error) error {
	return contextErrorImpl{err, context}
}

// Cause returns the cause of the given error if it's defined.
func Cause(err error) (error, bool) { // nolint: golint, staticcheck, stylecheck
	errWithContext, ok := err.(ContextError)
	if !ok {
		return nil, false
	}
	return errWithContext.Cause(), true
}

// RootCause returns the root cause of the given error.
func RootCause(err error) error {
	for {
		cause, ok := Cause(err)
		if !ok {
			return err
		}
		err = cause
	}
}

// ContextTrace returns the contexts that the error was wrapped with, outermost
// first.
func ContextTrace(err error) []string {
	var trace []string
	for {
		errWithContext, ok := err.(ContextError)
		if !ok {
			return trace
		}
		trace = append(trace, errWithContext.Context())
		err = errWithContext.Cause()
	}
}

// New returns a new Go error. It is provided so that callers don't have to
// import both the Go "errors" package and this package.
func New(f string, args ...interface{}) error {
	return fmt.Errorf(f, args...)
}

// As is the standard library's errors.As, re-exported for the same reason as
// New.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// Is is the standard library's errors.Is.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// NewFriendlyError returns a new user friendly error that can be retrieved by
// GetPrintableMessage.
func NewFriendlyError(f string, args ...interface{}) error {
	return friendlyErrorImpl{fmt.Sprintf(f, args...)}
}

// GetPrintableMessage returns a user friendly error to print to the user.
// If any error in the error chain has a user friendly error message, it prints
// that. Otherwise, it prints the errors' generic message.
func GetPrintableMessage(err error) string {
	if friendlyMsg, ok := getFriendlyMessage(err); ok {
		return friendlyMsg
	}
	return err.Error()
}

func getFriendlyMessage(err error) (string, bool) {
	for err != nil {
		if friendlyError, ok := err.(FriendlyError); ok {
			return friendlyError.FriendlyMessage(), true
		}
		err = goerrors.Unwrap(err)
	}
	return "", false
}

// HandleFatalError prints the error in a format suitable for the terminal and
// exits.
func HandleFatalError(err error) {
	log.WithError(RootCause(err)).
		WithField("context", ContextTrace(err)).
		Debug("Fatal error")

	fmt.Fprintln(os.Stderr, goterm.Color("FATAL ERROR:", goterm.RED))
	fmt.Fprintln(os.Stderr, GetPrintableMessage(err))
	os.Exit(1)
}
