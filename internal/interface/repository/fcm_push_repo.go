package repository

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/pkg/logger"
)

// FCMPushRepository delivers to Firebase Cloud Messaging. Each passenger's
// app subscribes to the topic "passenger-<id>".
type FCMPushRepository struct {
	logger    logger.Logger
	projectID string
	service   *fcm.Service
}

// NewFCMPushRepository creates the FCM client from an OAuth token source
func NewFCMPushRepository(ctx context.Context, logger logger.Logger, projectID string, ts oauth2.TokenSource) (repository.PushRepository, error) {
	svc, err := fcm.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create FCM service: %w", err)
	}
	return &FCMPushRepository{
		logger:    logger,
		projectID: projectID,
		service:   svc,
	}, nil
}

// PassengerTopic names the FCM topic a passenger's devices listen on.
func PassengerTopic(passengerID string) string {
	return "passenger-" + passengerID
}

// Send publishes msg to the passenger's topic
func (r *FCMPushRepository) Send(ctx context.Context, msg *entity.PushMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", fmt.Errorf("invalid message: %w", err)
	}

	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["notification_id"] = msg.NotificationID

	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Topic: PassengerTopic(msg.PassengerID),
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: data,
		},
	}

	sent, err := r.service.Projects.Messages.Send("projects/"+r.projectID, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fcm send failed: %w", err)
	}

	r.logger.Debug("FCM message sent",
		"notificationId", msg.NotificationID,
		"name", sent.Name)
	return sent.Name, nil
}
