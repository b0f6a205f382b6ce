package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var ErrGoogleTokenRejected = errors.New("google rejected the token")

// GoogleProfile is the subset of the Google account the API stores.
type GoogleProfile struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// GoogleIdentity resolves a Google token into a profile.
type GoogleIdentity interface {
	Profile(ctx context.Context, token string) (*GoogleProfile, error)
}

// GoogleAuthClient accepts either an OAuth access token, which is exchanged
// at the userinfo endpoint, or an ID token, which is validated locally
// against clientID.
type GoogleAuthClient struct {
	clientID    string
	userInfoURL string
}

func NewGoogleAuthClient(clientID string) *GoogleAuthClient {
	return &GoogleAuthClient{clientID: clientID, userInfoURL: googleUserInfoURL}
}

func (g *GoogleAuthClient) Profile(ctx context.Context, token string) (*GoogleProfile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrGoogleTokenRejected
	}
	if g.clientID != "" && looksLikeJWT(token) {
		return g.fromIDToken(ctx, token)
	}
	return g.fromUserInfo(ctx, token)
}

func (g *GoogleAuthClient) fromIDToken(ctx context.Context, token string) (*GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, token, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleTokenRejected, err)
	}

	profile := &GoogleProfile{Subject: payload.Subject}
	profile.Email, _ = payload.Claims["email"].(string)
	profile.GivenName, _ = payload.Claims["given_name"].(string)
	profile.FamilyName, _ = payload.Claims["family_name"].(string)
	profile.Picture, _ = payload.Claims["picture"].(string)
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: token carries no email", ErrGoogleTokenRejected)
	}
	return profile, nil
}

func (g *GoogleAuthClient) fromUserInfo(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo status %d", ErrGoogleTokenRejected, resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%w: userinfo carries no email", ErrGoogleTokenRejected)
	}
	return &profile, nil
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2 && strings.HasPrefix(token, "eyJ")
}
