package prompts

import (
	"context"
	"strings"

	"github.com/cschleiden/go-dialogflow/dialog"
)

var confirmChoices = map[string]bool{
	"y":     true,
	"yes":   true,
	"yep":   true,
	"sure":  true,
	"ok":    true,
	"true":  true,
	"n":     false,
	"no":    false,
	"nope":  false,
	"false": false,
}

// NewConfirmPrompt returns a prompt that ends with true or false for a yes or no answer.
func NewConfirmPrompt(id string) dialog.Dialog {
	return &prompt{
		id: id,
		recognize: func(ctx context.Context, dc *dialog.Context) (any, bool, error) {
			text := strings.ToLower(strings.TrimSpace(dc.TurnContext().Activity().Text))
			text = strings.TrimRight(text, ".!")

			v, ok := confirmChoices[text]
			return v, ok, nil
		},
	}
}
