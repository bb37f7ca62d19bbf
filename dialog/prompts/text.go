package prompts

import (
	"context"
	"strings"

	"github.com/cschleiden/go-dialogflow/dialog"
)

// NewTextPrompt returns a prompt that ends with the text of the next non-empty message.
func NewTextPrompt(id string) dialog.Dialog {
	return &prompt{
		id: id,
		recognize: func(ctx context.Context, dc *dialog.Context) (any, bool, error) {
			text := strings.TrimSpace(dc.TurnContext().Activity().Text)
			return text, text != "", nil
		},
	}
}
