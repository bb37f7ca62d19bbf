package fn

import (
	"reflect"
	"runtime"
	"strings"
)

// Name returns the short name of the function.
func Name(f any) string {
	fnName := FullName(f)

	s := strings.Split(fnName, ".")
	fnName = s[len(s)-1]

	return strings.TrimSuffix(fnName, "-fm")
}

// FullName returns the package qualified name of the function. Closures are named after their
// enclosing function with a numeric suffix.
func FullName(f any) string {
	// Adapted from https://stackoverflow.com/a/7053871
	fnName := runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()

	return strings.TrimSuffix(fnName, "-fm")
}
