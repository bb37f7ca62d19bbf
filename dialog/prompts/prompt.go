// Package prompts provides child dialogs that ask the user for a single value.
package prompts

import (
	"context"
	"fmt"

	"github.com/cschleiden/go-dialogflow/dialog"
)

// PromptOptions are passed when beginning a prompt.
type PromptOptions struct {
	// Prompt is sent when the prompt begins
	Prompt string `json:"prompt,omitempty"`

	// RetryPrompt is sent when the reply could not be recognized. Defaults to Prompt.
	RetryPrompt string `json:"retryPrompt,omitempty"`
}

type promptState struct {
	Options PromptOptions `json:"options"`
	Attempt int           `json:"attempt"`
}

func promptOptions(options any) (PromptOptions, error) {
	switch o := options.(type) {
	case nil:
		return PromptOptions{}, nil
	case PromptOptions:
		return o, nil
	case *PromptOptions:
		if o == nil {
			return PromptOptions{}, nil
		}

		return *o, nil
	case string:
		return PromptOptions{Prompt: o}, nil
	}

	return PromptOptions{}, fmt.Errorf("unsupported prompt options %T", options)
}

// recognizer returns the recognized value and true, or false if the reply has to be retried.
type recognizer func(ctx context.Context, dc *dialog.Context) (any, bool, error)

// prompt implements the dialog contract shared by all prompts.
type prompt struct {
	id        string
	recognize recognizer
}

func (p *prompt) ID() string {
	return p.id
}

func (p *prompt) BeginDialog(ctx context.Context, dc *dialog.Context, options any) (dialog.TurnResult, error) {
	o, err := promptOptions(options)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	s, err := dialog.State[promptState](dc)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	s.Options = o

	if err := send(ctx, dc, o.Prompt); err != nil {
		return dialog.TurnResult{}, err
	}

	return dialog.EndOfTurn, nil
}

func (p *prompt) ContinueDialog(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error) {
	if dc.TurnContext().Activity().Type != dialog.ActivityTypeMessage {
		return dialog.EndOfTurn, nil
	}

	s, err := dialog.State[promptState](dc)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	v, ok, err := p.recognize(ctx, dc)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	if ok {
		return dc.EndDialog(ctx, v)
	}

	s.Attempt++

	retry := s.Options.RetryPrompt
	if retry == "" {
		retry = s.Options.Prompt
	}

	if err := send(ctx, dc, retry); err != nil {
		return dialog.TurnResult{}, err
	}

	return dialog.EndOfTurn, nil
}

// ResumeDialog re-prompts when a dialog started on top of the prompt ended.
func (p *prompt) ResumeDialog(ctx context.Context, dc *dialog.Context, reason dialog.Reason, result any) (dialog.TurnResult, error) {
	s, err := dialog.State[promptState](dc)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	if err := send(ctx, dc, s.Options.Prompt); err != nil {
		return dialog.TurnResult{}, err
	}

	return dialog.EndOfTurn, nil
}

func send(ctx context.Context, dc *dialog.Context, text string) error {
	if text == "" {
		return nil
	}

	_, err := dc.TurnContext().SendActivity(ctx, dialog.MessageActivity(text))
	return err
}
