package r

import (
	wf "github.com/cschleiden/go-dialogflow/workflow"
)

func wfWrongOrder(ctx wf.Context, _ any) (error, string) {
	return nil, ""
}

func WfWrongOrder(ctx wf.Context, _ any) (error, string) { // want "workflow \"WfWrongOrder\" doesn't return `error` as last return value"
	return nil, ""
}
