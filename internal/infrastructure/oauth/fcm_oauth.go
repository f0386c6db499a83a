package oauth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/fcm/v1"

	"jeeptrack-service/pkg/logger"
)

// Scopes requested for sending through Firebase Cloud Messaging.
var Scopes = []string{fcm.CloudPlatformScope}

// FCMOAuth builds token sources for the FCM v1 API from a long-lived refresh
// token.
type FCMOAuth struct {
	config       *oauth2.Config
	refreshToken string
	logger       logger.Logger
}

// NewFCMOAuth creates a new FCM OAuth handler
func NewFCMOAuth(clientID, clientSecret, refreshToken string, logger logger.Logger) *FCMOAuth {
	return &FCMOAuth{
		config:       Config(clientID, clientSecret, ""),
		refreshToken: refreshToken,
		logger:       logger,
	}
}

// Config is shared with the token bootstrap tool.
func Config(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
	}
}

// GetTokenSource returns a refreshing token source. The first call to Token
// exchanges the refresh token.
func (o *FCMOAuth) GetTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if o.refreshToken == "" {
		return nil, fmt.Errorf("fcm refresh token is not configured")
	}
	token := &oauth2.Token{
		RefreshToken: o.refreshToken,
		Expiry:       time.Now(), // Force refresh
	}
	o.logger.Debug("FCM token source created", "clientId", o.config.ClientID)
	return o.config.TokenSource(ctx, token), nil
}
