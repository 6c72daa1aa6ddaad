// Package errors turns errors into low-cardinality labels for metrics.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"
)

// Classifier is implemented by errors that name their own metric class.
type Classifier interface {
	ErrorClass() string
}

// Classify returns a short label for err. Errors that implement Classifier name
// themselves; cancellation and timeouts get fixed labels; anything else is labelled
// by the innermost concrete type, e.g. "net_operror".
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var c Classifier
	if goerrors.As(err, &c) {
		if class := c.ErrorClass(); class != "" {
			return class
		}
	}

	switch {
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	var nerr net.Error
	if goerrors.As(err, &nerr) && nerr.Timeout() {
		return "timeout"
	}

	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
