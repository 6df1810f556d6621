// Package identity exchanges Google sign-in callbacks for a verified email
// identity.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"storefront-auth/internal/model"
)

var ErrNoEmail = errors.New("google account has no email")

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint and UserinfoURL override Google's production endpoints.
	Endpoint    oauth2.Endpoint
	UserinfoURL string
}

type GoogleProvider struct {
	oauth       *oauth2.Config
	userinfoURL string
}

func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes: []string{
				oauth2api.UserinfoEmailScope,
				oauth2api.UserinfoProfileScope,
			},
		},
		userinfoURL: cfg.UserinfoURL,
	}
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for a token and reads the userinfo
// endpoint with it.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (model.GoogleIdentity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return model.GoogleIdentity{}, fmt.Errorf("exchange google code: %w", err)
	}

	opts := []option.ClientOption{option.WithTokenSource(p.oauth.TokenSource(ctx, token))}
	if p.userinfoURL != "" {
		opts = append(opts, option.WithEndpoint(p.userinfoURL))
	}

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return model.GoogleIdentity{}, fmt.Errorf("create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return model.GoogleIdentity{}, fmt.Errorf("fetch google userinfo: %w", err)
	}

	email := strings.TrimSpace(info.Email)
	if email == "" {
		return model.GoogleIdentity{}, ErrNoEmail
	}

	return model.GoogleIdentity{
		Email:   email,
		Name:    strings.TrimSpace(info.Name),
		Picture: info.Picture,
	}, nil
}
