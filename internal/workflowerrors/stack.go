package workflowerrors

import goerrors "github.com/go-errors/errors"

func stack(v any) string {
	goerr := goerrors.Wrap(v, 2)
	return string(goerr.Stack())
}
