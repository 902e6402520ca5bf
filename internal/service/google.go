package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleOAuthConfig builds the oauth2 config from the running configuration.
// The callback must match what's registered in the Google console.
func GoogleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     viper.GetString("google.client_id"),
		ClientSecret: viper.GetString("google.client_secret"),
		RedirectURL:  viper.GetString("host.domain") + "/api/auth/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// FetchGoogleUser exchanges the authorization code and reads the userinfo
// endpoint with the resulting token.
func FetchGoogleUser(ctx context.Context, conf *oauth2.Config, code string) (*GoogleUser, error) {
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed, %w", err)
	}

	resp, err := conf.Client(ctx, token).Get(userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo, %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var u GoogleUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo, %w", err)
	}

	if u.Email == "" {
		return nil, fmt.Errorf("userinfo response contained no email")
	}

	return &u, nil
}
