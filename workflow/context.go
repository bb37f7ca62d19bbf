package workflow

import (
	"log/slog"
	"time"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/internal/workflowstate"
)

// Context is passed to workflow functions. It is the only way workflow code interacts with the
// executor, and all of its accessors are deterministic across replays.
type Context interface {
	// IsReplaying returns true while the workflow re-executes code paths that already ran in a
	// previous turn
	IsReplaying() bool

	// ChannelID returns the channel of the conversation
	ChannelID() string

	// WorkflowID returns the id of the dialog running the workflow
	WorkflowID() string

	// Now returns the current UTC time. The value is recorded on first execution and replayed afterwards.
	Now() time.Time

	// NewGUID returns a random identifier. The value is recorded on first execution and replayed afterwards.
	NewGUID() string

	// Logger returns a logger that drops records while the workflow is replaying
	Logger() *slog.Logger

	state() *workflowstate.WfState
}

type workflowContext struct {
	s *workflowstate.WfState
}

// NewContext creates the context for a workflow run driven by the given state.
func NewContext(s *workflowstate.WfState) Context {
	return &workflowContext{s: s}
}

func (c *workflowContext) IsReplaying() bool {
	return c.s.Replaying()
}

func (c *workflowContext) ChannelID() string {
	return c.s.ChannelID()
}

func (c *workflowContext) WorkflowID() string {
	return c.s.WorkflowID()
}

func (c *workflowContext) Now() time.Time {
	return now(c.s)
}

func (c *workflowContext) NewGUID() string {
	return newGUID(c.s)
}

func (c *workflowContext) Logger() *slog.Logger {
	return c.s.Logger()
}

func (c *workflowContext) state() *workflowstate.WfState {
	return c.s
}

// Replaying returns true while the workflow is replaying recorded history.
func Replaying(ctx Context) bool {
	return ctx.IsReplaying()
}

// Logger returns the replay-aware logger of the workflow.
func Logger(ctx Context) *slog.Logger {
	return ctx.Logger()
}

// Options decodes the options the workflow was started with.
func Options[O any](ctx Context) (O, error) {
	s := ctx.state()
	return converter.Decode[O](s.Converter(), s.Instance().Options)
}
