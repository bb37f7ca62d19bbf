package workflow

import (
	"time"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/backend/history"
	"github.com/cschleiden/go-dialogflow/internal/workflowstate"
	"github.com/google/uuid"
)

// Now returns the deterministic current time of the workflow.
func Now(ctx Context) time.Time {
	return ctx.Now()
}

// NewGUID returns a deterministic random identifier.
func NewGUID(ctx Context) string {
	return ctx.NewGUID()
}

func now(s *workflowstate.WfState) time.Time {
	v := recordString(s, history.KindCurrentUtcTime, func() string {
		return s.Clock().Now().UTC().Format(time.RFC3339Nano)
	})

	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		s.Diverged("recorded time %q is malformed", v)
	}

	return t
}

func newGUID(s *workflowstate.WfState) string {
	return recordString(s, history.KindNewGuid, uuid.NewString)
}

// recordString records a string value with an empty persistent identifier.
func recordString(s *workflowstate.WfState, kind string, produce func() string) string {
	r := s.Record(kind, "", func() history.Result {
		p, err := s.Converter().To(produce())
		if err != nil {
			return history.Failed(err)
		}

		return history.Succeeded(p)
	})

	if !r.Success {
		s.Diverged("recorded %s failed: %s", kind, r.Error)
	}

	v, err := converter.Decode[*string](s.Converter(), r.Value)
	if err != nil || v == nil {
		s.Diverged("recorded %s is not a string", kind)
	}

	return *v
}
