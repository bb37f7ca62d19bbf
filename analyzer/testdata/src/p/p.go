package p

import (
	"fmt"
	"math/rand"
	"time"

	wf "github.com/cschleiden/go-dialogflow/workflow"
)

type options struct{}

func wfOK(ctx wf.Context, o options) (string, error) {
	_ = ctx.Now()
	_ = ctx.NewGUID()

	return "", nil
}

func wfWithTooManyResults(ctx wf.Context, o options) (int, string, error) { // want "workflow \"wfWithTooManyResults\" needs to return exactly a result and `error`"
	return 42, "", nil
}

func wfOnlyError(ctx wf.Context, o options) error { // want "workflow \"wfOnlyError\" needs to return exactly a result and `error`"
	return nil
}

func wfWrongOrder(ctx wf.Context, o options) (error, string) { // want "workflow \"wfWrongOrder\" doesn't return `error` as last return value"
	return nil, ""
}

func wfWithoutReturn(ctx wf.Context, o options) { // want "workflow \"wfWithoutReturn\" doesn't return anything. needs to return a result and `error`"
}

func wfIteratingOverMap(ctx wf.Context, o options) (string, error) {
	x := make(map[string]string)

	fmt.Println("log")

	for _, v := range x { // want "iterating over a map is not deterministic and not allowed in workflows"
		if v == "a" {
			return v, nil
		}
	}

	return "", nil
}

func wfUsingGoRoutine(ctx wf.Context, o options) (string, error) {
	go func() { // want "`go` statements are not allowed in workflows, start work in wf.Call instead"
		fmt.Println("hello")
	}()

	return "", nil
}

func wfUsingSelect(ctx wf.Context, o options) (string, error) {
	c := make(chan string)

	select { // want "`select` is not deterministic and not allowed in workflows"
	case s := <-c:
		return s, nil
	default:
	}

	return "", nil
}

func wfUsingTime(ctx wf.Context, o options) (time.Time, error) {
	if true {
		time.Sleep(time.Second) // want "time.Sleep blocks the turn, use wf.ReceiveActivity to wait in workflows"
	}

	return time.Now(), nil // want "use ctx.Now\\(\\) instead of time.Now in workflows"
}

func wfUsingRand(ctx wf.Context, o options) (int, error) {
	return rand.Intn(10), nil // want "random numbers are not deterministic, use wf.Call or ctx.NewGUID in workflows"
}

// Not a workflow
func helper(o options) (int, string, error) {
	_ = time.Now()

	for range map[string]int{} {
	}

	return 0, "", nil
}
