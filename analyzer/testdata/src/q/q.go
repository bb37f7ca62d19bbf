// nolint
package q

import (
	"time"

	wf "github.com/cschleiden/go-dialogflow/workflow"
)

func wfWrongOrder(ctx wf.Context, _ any) (error, string) { // want "workflow \"wfWrongOrder\" doesn't return `error` as last return value"
	return nil, ""
}

func WfWrongOrder(ctx wf.Context, _ any) (error, string) { // want "workflow \"WfWrongOrder\" doesn't return `error` as last return value"
	_ = time.Now() // want "use ctx.Now\\(\\) instead of time.Now in workflows"

	return nil, ""
}
