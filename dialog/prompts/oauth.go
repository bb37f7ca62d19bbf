package prompts

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cschleiden/go-dialogflow/dialog"
)

// TokenResponseEventName is the name of the event activity a channel sends with a token after sign-in.
const TokenResponseEventName = "tokens/response"

var magicCode = regexp.MustCompile(`^\d{6}$`)

type OAuthSettings struct {
	ConnectionName string

	// Text is sent together with the sign-in link
	Text string

	// Timeout after which the prompt ends without a token. Defaults to 15 minutes.
	Timeout time.Duration

	Clock clock.Clock
}

type oauthState struct {
	Expires time.Time `json:"expires"`
}

type oauthPrompt struct {
	id       string
	settings OAuthSettings
	provider dialog.TokenProvider
}

// NewOAuthPrompt returns a prompt that signs the user in. It ends with a *dialog.TokenResponse, or
// with nil if the user could not be signed in.
func NewOAuthPrompt(id string, settings OAuthSettings, provider dialog.TokenProvider) dialog.Dialog {
	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Minute
	}

	if settings.Clock == nil {
		settings.Clock = clock.New()
	}

	return &oauthPrompt{
		id:       id,
		settings: settings,
		provider: provider,
	}
}

func (p *oauthPrompt) ID() string {
	return p.id
}

func (p *oauthPrompt) BeginDialog(ctx context.Context, dc *dialog.Context, options any) (dialog.TurnResult, error) {
	userID := dc.TurnContext().Activity().From.ID

	token, err := p.provider.GetUserToken(ctx, userID, p.settings.ConnectionName, "")
	if err != nil {
		return dialog.TurnResult{}, fmt.Errorf("getting user token: %w", err)
	}

	if token != nil {
		return dc.EndDialog(ctx, token)
	}

	s, err := dialog.State[oauthState](dc)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	s.Expires = p.settings.Clock.Now().Add(p.settings.Timeout).UTC()

	link, err := p.provider.SignInLink(ctx, userID, p.settings.ConnectionName)
	if err != nil {
		return dialog.TurnResult{}, fmt.Errorf("getting sign-in link: %w", err)
	}

	text := link
	if p.settings.Text != "" {
		text = p.settings.Text + " " + link
	}

	if _, err := dc.TurnContext().SendActivity(ctx, dialog.MessageActivity(text)); err != nil {
		return dialog.TurnResult{}, err
	}

	return dialog.EndOfTurn, nil
}

func (p *oauthPrompt) ContinueDialog(ctx context.Context, dc *dialog.Context) (dialog.TurnResult, error) {
	s, err := dialog.State[oauthState](dc)
	if err != nil {
		return dialog.TurnResult{}, err
	}

	if p.settings.Clock.Now().After(s.Expires) {
		return dc.EndDialog(ctx, nil)
	}

	activity := dc.TurnContext().Activity()

	switch {
	case activity.Type == dialog.ActivityTypeEvent && activity.Name == TokenResponseEventName:
		token := &dialog.TokenResponse{}
		if err := dc.Converter().From(activity.Value, token); err != nil {
			return dialog.TurnResult{}, fmt.Errorf("decoding token response: %w", err)
		}

		return dc.EndDialog(ctx, token)

	case activity.Type == dialog.ActivityTypeMessage:
		if !magicCode.MatchString(activity.Text) {
			return dc.EndDialog(ctx, nil)
		}

		token, err := p.provider.GetUserToken(ctx, activity.From.ID, p.settings.ConnectionName, activity.Text)
		if err != nil {
			return dialog.TurnResult{}, fmt.Errorf("exchanging magic code: %w", err)
		}

		if token == nil {
			return dc.EndDialog(ctx, nil)
		}

		return dc.EndDialog(ctx, token)
	}

	return dialog.EndOfTurn, nil
}

func (p *oauthPrompt) ResumeDialog(ctx context.Context, dc *dialog.Context, reason dialog.Reason, result any) (dialog.TurnResult, error) {
	return dialog.EndOfTurn, nil
}
