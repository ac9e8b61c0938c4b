package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

type FCMConfig struct {
	// ProjectID defaults to the project of the service account.
	ProjectID       string
	CredentialsJSON string
	CredentialsFile string
}

// FCMSender sends through the Firebase Cloud Messaging HTTP v1 API.
type FCMSender struct {
	svc    *fcm.Service
	parent string
}

func NewFCMSender(ctx context.Context, cfg FCMConfig) (*FCMSender, error) {
	b := []byte(cfg.CredentialsJSON)
	if len(strings.TrimSpace(cfg.CredentialsJSON)) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, errors.New("missing FCM credentials")
		}
		var err error
		if b, err = os.ReadFile(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("read FCM credentials: %w", err)
		}
	}
	creds, err := google.CredentialsFromJSON(ctx, b, messagingScope)
	if err != nil {
		return nil, fmt.Errorf("parse FCM credentials: %w", err)
	}
	project := cfg.ProjectID
	if project == "" {
		project = creds.ProjectID
	}
	if project == "" {
		return nil, errors.New("missing FCM project id")
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	svc, err := fcm.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create FCM service: %w", err)
	}
	return NewFCMSenderWithService(svc, project), nil
}

// NewFCMSenderWithService wraps an existing service, e.g. one pointed at a test server.
func NewFCMSenderWithService(svc *fcm.Service, projectID string) *FCMSender {
	return &FCMSender{svc: svc, parent: "projects/" + projectID}
}

func (s *FCMSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token:        token,
			Notification: &fcm.Notification{Title: title, Body: body},
			Data:         data,
			Android:      &fcm.AndroidConfig{Priority: "HIGH"},
		},
	}
	_, err := s.svc.Projects.Messages.Send(s.parent, req).Context(ctx).Do()
	if err == nil {
		return nil
	}
	if isUnregistered(err) {
		return fmt.Errorf("%w: %v", ErrUnregistered, err)
	}
	return fmt.Errorf("fcm send: %w", err)
}

// isUnregistered recognises FCM's answer for tokens that will never work again.
func isUnregistered(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusNotFound {
		return true
	}
	return strings.Contains(gerr.Body, "UNREGISTERED") || strings.Contains(gerr.Message, "UNREGISTERED")
}
