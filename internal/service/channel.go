package service

import (
	"context"

	"mangrovewatch/internal/models"
)

// SMSChannel delivers a single outbound SMS and returns a provider message id.
type SMSChannel interface {
	SendSMS(ctx context.Context, payload models.SMSPayload) (string, error)
}

// EmailChannel delivers a single outbound email and returns a provider id.
type EmailChannel interface {
	SendEmail(ctx context.Context, payload models.EmailPayload) (string, error)
}

type noopSMSChannel struct{}

// NewNoopSMSChannel returns an SMS channel that silently drops messages.
func NewNoopSMSChannel() SMSChannel {
	return &noopSMSChannel{}
}

func (c *noopSMSChannel) SendSMS(ctx context.Context, payload models.SMSPayload) (string, error) {
	return "", nil
}

type noopEmailChannel struct{}

// NewEmailChannel returns a placeholder email channel implementation.
func NewEmailChannel() EmailChannel {
	return &noopEmailChannel{}
}

func (c *noopEmailChannel) SendEmail(ctx context.Context, payload models.EmailPayload) (string, error) {
	return "", nil
}
