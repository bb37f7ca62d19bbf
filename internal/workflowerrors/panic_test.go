package workflowerrors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NewPanicError(t *testing.T) {
	var e *PanicError
	func() {
		defer func() {
			if r := recover(); r != nil {
				e = NewPanicError(r)
			}
		}()

		panicking()
	}()

	require.NotNil(t, e)
	require.Equal(t, "panic: test", e.Error())
	require.Contains(t, e.Stack(), "panicking")
	require.NotContains(t, e.Stack(), "workflowerrors.NewPanicError")
}

func panicking() {
	panic("test")
}
