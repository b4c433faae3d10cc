package strava

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/chalkin/chalkin/internal/core/domain"
)

// Scope is requested from Strava. Strava expects comma separated scopes.
const Scope = "activity:write,read"

// OAuthOptions configures the Strava OAuth client.
type OAuthOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	// HTTPClient is used for token requests when set.
	HTTPClient *http.Client
}

// OAuth implements ports.StravaOAuth.
type OAuth struct {
	cfg    *oauth2.Config
	client *http.Client
}

// NewOAuth creates an OAuth client.
func NewOAuth(opts OAuthOptions) *OAuth {
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: opts.HTTPClient,
	}
}

// AuthCodeURL returns the consent page URL carrying state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("scope", Scope),
		oauth2.SetAuthURLParam("approval_prompt", "auto"),
	)
}

// Exchange trades an authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (*domain.StravaConnection, error) {
	tok, err := o.cfg.Exchange(o.ctx(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("strava token exchange: %w", err)
	}
	conn := fromToken(tok)

	athlete, _ := tok.Extra("athlete").(map[string]any)
	if id, ok := athlete["id"].(float64); ok {
		conn.AthleteID = int64(id)
	}
	if conn.AthleteID == 0 {
		return nil, fmt.Errorf("strava token response has no athlete")
	}
	if conn.Scope == "" {
		conn.Scope = Scope
	}
	return conn, nil
}

// Refresh renews conn's tokens.
func (o *OAuth) Refresh(ctx context.Context, conn *domain.StravaConnection) (*domain.StravaConnection, error) {
	// An expiry in the past makes the token source refresh immediately.
	src := o.cfg.TokenSource(o.ctx(ctx), &oauth2.Token{
		RefreshToken: conn.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("strava token refresh: %w", err)
	}
	fresh := fromToken(tok)
	fresh.ID = conn.ID
	fresh.UserID = conn.UserID
	fresh.AthleteID = conn.AthleteID
	if fresh.Scope == "" {
		fresh.Scope = conn.Scope
	}
	return fresh, nil
}

func (o *OAuth) ctx(ctx context.Context) context.Context {
	if o.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, o.client)
}

func fromToken(tok *oauth2.Token) *domain.StravaConnection {
	conn := &domain.StravaConnection{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		conn.Scope = scope
	}
	return conn
}
