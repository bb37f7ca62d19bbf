package dialog

import "context"

// TokenResponse is the result of a successful sign-in.
type TokenResponse struct {
	ConnectionName string `json:"connectionName"`
	Token          string `json:"token"`
	Expiration     string `json:"expiration,omitempty"`
}

// TokenProvider acquires user tokens for authenticated calls.
type TokenProvider interface {
	// GetUserToken returns the cached token of the user, or exchanges the given magic code. Returns
	// nil if no token is available.
	GetUserToken(ctx context.Context, userID, connectionName, magicCode string) (*TokenResponse, error)

	// SignInLink returns the link the user has to follow to sign in.
	SignInLink(ctx context.Context, userID, connectionName string) (string, error)

	// SignOutUser removes the cached token of the user.
	SignOutUser(ctx context.Context, userID, connectionName string) error
}
