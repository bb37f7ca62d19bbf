package workflow

// Workflow is a conversational workflow. It is started with options of type O and completes with
// a result of type R. Workflow code must be deterministic: all interaction with the outside world
// goes through tasks awaited on the context.
type Workflow[O, R any] func(ctx Context, options O) (R, error)
