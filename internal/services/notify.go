package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// NotifyService delivers APNs pushes for messages that arrive while the
// recipient is offline. All delivery is best-effort.
type NotifyService struct {
	client *apns2.Client
	topic  string
}

// NewNotifyService creates a new notify service from a .p8 auth key
func NewNotifyService(keyFile, keyID, teamID, topic string, production bool) (*NotifyService, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &NotifyService{
		client: client,
		topic:  topic,
	}, nil
}

// PushMessage sends a message notification to a device token. Failures
// are logged and swallowed.
func (s *NotifyService) PushMessage(ctx context.Context, pushToken, title, body string) {
	notification := &apns2.Notification{
		DeviceToken: pushToken,
		Topic:       s.topic,
		Payload: payload.NewPayload().
			AlertTitle(title).
			AlertBody(body).
			Sound("default"),
	}

	res, err := s.client.PushWithContext(ctx, notification)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to send push notification")
		return
	}
	if !res.Sent() {
		log.Warn().
			Int("status", res.StatusCode).
			Str("reason", res.Reason).
			Msg("Push notification rejected")
	}
}
