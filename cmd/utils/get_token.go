package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"jeeptrack-service/internal/infrastructure/oauth"
)

// Prints a refresh token for FCM_REFRESH_TOKEN. Reads FCM_CLIENT_ID and
// FCM_CLIENT_SECRET from the environment.
func main() {
	config := oauth.Config(
		os.Getenv("FCM_CLIENT_ID"),
		os.Getenv("FCM_CLIENT_SECRET"),
		"http://localhost:8090/oauth2callback",
	)
	if config.ClientID == "" || config.ClientSecret == "" {
		log.Fatal("FCM_CLIENT_ID and FCM_CLIENT_SECRET must be set")
	}

	state := uuid.NewString()

	// Start an HTTP server to handle the OAuth callback
	http.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		code := r.URL.Query().Get("code")
		token, err := config.Exchange(context.Background(), code)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to exchange code: %v", err), http.StatusInternalServerError)
			return
		}

		fmt.Printf("\nFCM_REFRESH_TOKEN=%s\n\n", token.RefreshToken)

		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		os.Exit(0)
	})

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Printf("Open this URL in your browser:\n%s\n", authURL)

	log.Fatal(http.ListenAndServe(":8090", nil))
}
