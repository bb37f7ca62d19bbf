package tester

import (
	"log/slog"
	"time"

	"github.com/cschleiden/go-dialogflow/backend/converter"
	"github.com/cschleiden/go-dialogflow/dialog"
)

type options struct {
	Logger      *slog.Logger
	Converter   converter.Converter
	Dialogs     []dialog.Dialog
	RootOptions any
	Start       time.Time
}

type ConversationTesterOption func(*options)

func WithLogger(logger *slog.Logger) ConversationTesterOption {
	return func(o *options) {
		o.Logger = logger
	}
}

func WithConverter(c converter.Converter) ConversationTesterOption {
	return func(o *options) {
		o.Converter = c
	}
}

// WithDialogs registers additional dialogs, e.g. prompts used by the workflow.
func WithDialogs(dialogs ...dialog.Dialog) ConversationTesterOption {
	return func(o *options) {
		o.Dialogs = append(o.Dialogs, dialogs...)
	}
}

// WithOptions sets the options the workflow is started with.
func WithOptions(rootOptions any) ConversationTesterOption {
	return func(o *options) {
		o.RootOptions = rootOptions
	}
}

// WithStartTime sets the initial time of the mock clock.
func WithStartTime(t time.Time) ConversationTesterOption {
	return func(o *options) {
		o.Start = t
	}
}
