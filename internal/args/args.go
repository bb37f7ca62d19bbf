package args

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/cschleiden/go-dialogflow/backend/converter"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// ParamsMatch checks that the given arguments can be passed to fn.
func ParamsMatch(fn any, args ...any) error {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return errors.New("not a function")
	}

	if fnType.IsVariadic() {
		return errors.New("variadic functions are not supported")
	}

	if fnType.NumIn() != len(args) {
		return fmt.Errorf("mismatched argument count: expected %d, got %d", fnType.NumIn(), len(args))
	}

	for i, arg := range args {
		paramType := fnType.In(i)

		if arg == nil {
			switch paramType.Kind() {
			case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
				continue
			}

			return fmt.Errorf("mismatched argument type: expected %v, got nil", paramType)
		}

		argType := reflect.TypeOf(arg)
		if !argType.AssignableTo(paramType) {
			return fmt.Errorf("mismatched argument type: expected %v, got %v", paramType, argType)
		}
	}

	return nil
}

// ReturnTypeMatch checks that fn returns (T, error), T, or error.
func ReturnTypeMatch[T any](fn any) error {
	fnType := reflect.TypeOf(fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return errors.New("not a function")
	}

	if fnType.NumOut() > 2 {
		return errors.New("function must return at most two values")
	}

	if fnType.NumOut() == 2 && !fnType.Out(1).Implements(errType) {
		return errors.New("function must return error as last return value")
	}

	if fnType.NumOut() == 0 || (fnType.NumOut() == 1 && fnType.Out(0) == errType) {
		// No value, T will be the zero value
		return nil
	}

	expected := reflect.TypeOf((*T)(nil)).Elem()
	if !fnType.Out(0).AssignableTo(expected) {
		return fmt.Errorf("function must return %v, got %v", expected, fnType.Out(0))
	}

	return nil
}

// Call invokes fn with the given arguments and splits its results into value and error.
func Call(fn any, args ...any) (any, error) {
	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(fnType.In(i))
			continue
		}

		in[i] = reflect.ValueOf(arg)
	}

	out := fnValue.Call(in)

	var value any
	var err error

	switch {
	case len(out) == 2:
		value = out[0].Interface()
		if e, ok := out[1].Interface().(error); ok {
			err = e
		}

	case len(out) == 1 && fnType.Out(0) == errType:
		if e, ok := out[0].Interface().(error); ok {
			err = e
		}

	case len(out) == 1:
		value = out[0].Interface()
	}

	return value, err
}

// Signature returns a stable textual representation of a call to the function with the given name
// and arguments, e.g. pkg.Fn("a",2).
func Signature(c converter.Converter, name string, args ...any) (string, error) {
	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		if _, ok := arg.(context.Context); ok {
			return "", errors.New("context arguments cannot be part of a call signature")
		}

		p, err := c.To(arg)
		if err != nil {
			return "", fmt.Errorf("converting argument: %w", err)
		}

		encoded = append(encoded, string(p))
	}

	return name + "(" + strings.Join(encoded, ",") + ")", nil
}
