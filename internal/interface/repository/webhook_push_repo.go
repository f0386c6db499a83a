package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
)

// WebhookPushRepository posts push messages to an HTTP push gateway
type WebhookPushRepository struct {
	logger      logger.Logger
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewWebhookPushRepository creates a new webhook push repository
func NewWebhookPushRepository(logger logger.Logger, baseURL, bearerToken string, timeout time.Duration) repository.PushRepository {
	return &WebhookPushRepository{
		logger:      logger,
		baseURL:     baseURL,
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: timeout},
	}
}

// Send posts msg to the gateway and returns the gateway's message id
func (r *WebhookPushRepository) Send(ctx context.Context, msg *entity.PushMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", fmt.Errorf("invalid message: %w", err)
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/push/send", r.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if r.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearerToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		var errorBody map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorBody)
		return "", fmt.Errorf("push gateway returned status %d: %v", resp.StatusCode, errorBody)
	}

	var response entity.PushResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if !response.Success {
		return "", fmt.Errorf("push rejected: %s (code: %s)", response.Error.Message, response.Error.Code)
	}

	r.logger.Debug("Push delivered",
		"notificationId", msg.NotificationID,
		"passengerId", msg.PassengerID,
		"messageId", response.Data.MessageID)

	return response.Data.MessageID, nil
}
