package args

import (
	"errors"
	"testing"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/stretchr/testify/require"
)

func intReturn() (int, error) {
	return 0, nil
}

func stringReturn() (string, error) {
	return "", nil
}

func errorReturn() error {
	return nil
}

func TestReturnTypeMatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
		want string
	}{
		{
			name: "int match",
			fn: func() error {
				return ReturnTypeMatch[int](intReturn)
			},
			want: "",
		},
		{
			name: "string match",
			fn: func() error {
				return ReturnTypeMatch[string](stringReturn)
			},
			want: "",
		},
		{
			name: "int mismatch",
			fn: func() error {
				return ReturnTypeMatch[string](intReturn)
			},
			want: "function must return string, got int",
		},
		{
			name: "no param",
			fn: func() error {
				return ReturnTypeMatch[any](errorReturn)
			},
			want: "",
		},
		{
			name: "no param mismatch",
			fn: func() error {
				return ReturnTypeMatch[int](errorReturn)
			},
			want: "",
		},
		{
			name: "not a function",
			fn: func() error {
				return ReturnTypeMatch[int](42)
			},
			want: "not a function",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn()
			if tt.want == "" {
				require.NoError(t, got)
			} else {
				require.Error(t, got)
				require.Equal(t, tt.want, got.Error())
			}
		})
	}
}

func intParam(int) {
}

func stringParam(string) {
}

func interfaceParam(string, interface{}, int) {
}

func pointerParam(*int) {
}

func TestParamsMatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
		want string
	}{
		{
			name: "int match",
			fn: func() error {
				return ParamsMatch(intParam, 42)
			},
			want: "",
		},
		{
			name: "int mismatch",
			fn: func() error {
				return ParamsMatch(intParam, "")
			},
			want: "mismatched argument type: expected int, got string",
		},
		{
			name: "string mismatch",
			fn: func() error {
				return ParamsMatch(stringParam, 42)
			},
			want: "mismatched argument type: expected string, got int",
		},
		{
			name: "interface{} accepts anything",
			fn: func() error {
				return ParamsMatch(interfaceParam, "", 23, 42)
			},
			want: "",
		},
		{
			name: "too few arguments",
			fn: func() error {
				return ParamsMatch(interfaceParam, "")
			},
			want: "mismatched argument count: expected 3, got 1",
		},
		{
			name: "nil pointer",
			fn: func() error {
				return ParamsMatch(pointerParam, nil)
			},
			want: "",
		},
		{
			name: "nil int",
			fn: func() error {
				return ParamsMatch(intParam, nil)
			},
			want: "mismatched argument type: expected int, got nil",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn()
			if tt.want == "" {
				require.NoError(t, got)
			} else {
				require.Error(t, got)
				require.Equal(t, tt.want, got.Error())
			}
		})
	}
}

func TestCall(t *testing.T) {
	v, err := Call(func(a, b int) (int, error) { return a + b, nil }, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 3, v)

	v, err = Call(func(s string) string { return s + "!" }, "hi")
	require.NoError(t, err)
	require.Equal(t, "hi!", v)

	v, err = Call(func() error { return errors.New("boom") })
	require.EqualError(t, err, "boom")
	require.Nil(t, v)

	v, err = Call(func(p *int) bool { return p == nil }, nil)
	require.NoError(t, err)
	require.Equal(t, true, v)
}

func TestSignature(t *testing.T) {
	s, err := Signature(converter.DefaultConverter, "pkg.Fn", "a", 2, map[string]int{"x": 1})
	require.NoError(t, err)
	require.Equal(t, `pkg.Fn("a",2,{"x":1})`, s)

	s, err = Signature(converter.DefaultConverter, "pkg.Fn")
	require.NoError(t, err)
	require.Equal(t, `pkg.Fn()`, s)
}
