package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/home-ledger/internal/errors"
)

const providerGoogle = "google"

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	gmailReadScope = "https://www.googleapis.com/auth/gmail.readonly"
)

// GoogleOAuth performs the authorization-code and refresh-token exchanges
// needed to read a user's mailbox.
type GoogleOAuth struct {
	clientID     string
	clientSecret string
	redirectURL  string
	tokenURL     string
	client       *http.Client
}

// NewGoogleOAuth creates an OAuth client from the configured credentials.
func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *GoogleOAuth {
	return &GoogleOAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		tokenURL:     googleTokenURL,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// TokenResponse is the result of a code or refresh exchange. RefreshToken
// is only present on the initial code exchange.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// ConsentURL builds the URL the user visits to grant mailbox access. The
// state value binds the callback to the initiating user.
func (g *GoogleOAuth) ConsentURL(state string) string {
	query := url.Values{}
	query.Set("client_id", g.clientID)
	query.Set("redirect_uri", g.redirectURL)
	query.Set("response_type", "code")
	query.Set("scope", gmailReadScope)
	query.Set("access_type", "offline")
	query.Set("prompt", "consent")
	query.Set("state", state)
	return googleAuthURL + "?" + query.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (g *GoogleOAuth) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if code == "" {
		return nil, apperrors.NewInvalidParameterError("code", "must not be empty")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", g.redirectURL)
	return g.exchange(ctx, form)
}

// RefreshAccessToken trades a stored refresh token for a fresh access token.
func (g *GoogleOAuth) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, apperrors.NewInvalidParameterError("refreshToken", "must not be empty")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return g.exchange(ctx, form)
}

func (g *GoogleOAuth) exchange(ctx context.Context, form url.Values) (*TokenResponse, error) {
	if g.clientID == "" || g.clientSecret == "" {
		return nil, apperrors.NewInternalError("google OAuth credentials not configured", nil)
	}
	form.Set("client_id", g.clientID)
	form.Set("client_secret", g.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError(providerGoogle)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewProviderError(providerGoogle, err)
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		var oauthErr struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		_ = json.Unmarshal(body, &oauthErr)
		if oauthErr.Error == "invalid_grant" {
			return nil, apperrors.NewUnauthorizedError("mailbox authorization expired, reconnect required")
		}
		return nil, apperrors.NewProviderError(providerGoogle,
			fmt.Errorf("token exchange rejected: %s %s", oauthErr.Error, oauthErr.Description))
	}
	if resp.StatusCode >= 500 {
		return nil, apperrors.NewProviderUnavailableError(providerGoogle)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewProviderError(providerGoogle,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, apperrors.NewProviderError(providerGoogle, fmt.Errorf("failed to parse token response: %w", err))
	}
	if token.AccessToken == "" {
		return nil, apperrors.NewProviderError(providerGoogle, fmt.Errorf("empty access token in response"))
	}
	return &token, nil
}
