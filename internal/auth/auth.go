package auth

import (
	"context"
	"fmt"

	"github.com/pocketsnooze/snoozerd/internal/logger"
)

// Gateway is the slice of the Pocket client the OAuth handshake uses.
type Gateway interface {
	RequestToken(ctx context.Context, redirectURI string) (string, error)
	Authorize(ctx context.Context, code string) (token, username string, err error)
}

// CredentialStore is the slice of the snooze store holding credentials.
type CredentialStore interface {
	AccessToken(ctx context.Context) (string, error)
	SetCredentials(ctx context.Context, token, username string) error
}

// Authenticator drives the Pocket OAuth-style handshake. The daemon cannot
// open a browser, so StartAuthentication hands the authorize URL back to the
// UI and FinishAuthentication is called once the user approved the request.
type Authenticator struct {
	gateway     Gateway
	store       CredentialStore
	webBaseURL  string
	redirectURI string
	logger      logger.Logger
}

// Options configures an Authenticator.
type Options struct {
	Gateway     Gateway
	Store       CredentialStore
	WebBaseURL  string // ex: https://getpocket.com
	RedirectURI string // ex: https://getpocket.com/auth/verify
	Logger      logger.Logger
}

// New creates an authenticator.
func New(opts Options) *Authenticator {
	return &Authenticator{
		gateway:     opts.Gateway,
		store:       opts.Store,
		webBaseURL:  opts.WebBaseURL,
		redirectURI: opts.RedirectURI,
		logger:      opts.Logger,
	}
}

// IsAuthenticated naively checks whether an access token is stored. The
// token may still be rejected remotely, which evicts it and flips this back
// to false.
func (a *Authenticator) IsAuthenticated(ctx context.Context) (bool, error) {
	token, err := a.store.AccessToken(ctx)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// StartAuthentication obtains an authentication code and returns the
// authorize URL the user must visit to approve the request.
func (a *Authenticator) StartAuthentication(ctx context.Context) (string, error) {
	code, err := a.gateway.RequestToken(ctx, a.redirectURI)
	if err != nil {
		return "", err
	}
	a.logger.Debug("received authentication code")

	return fmt.Sprintf("%s/auth/authorize?request_token=%s&redirect_uri=%s/%s",
		a.webBaseURL, code, a.redirectURI, code), nil
}

// FinishAuthentication exchanges an approved code for a permanent access
// token and stores the credentials.
func (a *Authenticator) FinishAuthentication(ctx context.Context, code string) error {
	token, username, err := a.gateway.Authorize(ctx, code)
	if err != nil {
		return err
	}
	if err := a.store.SetCredentials(ctx, token, username); err != nil {
		return err
	}
	a.logger.Info("authenticated with pocket",
		logger.String("username", username))
	return nil
}
