package service

import (
	"context"
	"fmt"

	"github.com/kavenegar/kavenegar-go"

	"mangrovewatch/internal/models"
)

type kavenegarSMSChannel struct {
	api    *kavenegar.Kavenegar
	sender string
}

// NewKavenegarSMSChannel creates an SMS channel backed by Kavenegar. An
// empty API key degrades to the noop channel so a missing provider never
// breaks the write path.
func NewKavenegarSMSChannel(apiKey, sender string) SMSChannel {
	if apiKey == "" {
		return &noopSMSChannel{}
	}
	return &kavenegarSMSChannel{
		api:    kavenegar.New(apiKey),
		sender: sender,
	}
}

func (c *kavenegarSMSChannel) SendSMS(ctx context.Context, payload models.SMSPayload) (string, error) {
	if payload.Phone == "" {
		return "", fmt.Errorf("phone number is required")
	}

	if payload.Template != "" {
		var token string
		if val, ok := payload.Tokens["token"]; ok {
			token = val
		}

		params := &kavenegar.VerifyLookupParam{}
		res, err := c.api.Verify.Lookup(payload.Phone, payload.Template, token, params)
		if err != nil {
			switch err := err.(type) {
			case *kavenegar.APIError:
				return "", fmt.Errorf("kavenegar API error: %w", err)
			case *kavenegar.HTTPError:
				return "", fmt.Errorf("kavenegar HTTP error: %w", err)
			default:
				return "", fmt.Errorf("failed to send SMS via template: %w", err)
			}
		}
		return fmt.Sprintf("%d", res.MessageID), nil
	}

	if payload.Message == "" {
		return "", fmt.Errorf("message is required when template is not provided")
	}

	res, err := c.api.Message.Send(c.sender, []string{payload.Phone}, payload.Message, nil)
	if err != nil {
		switch err := err.(type) {
		case *kavenegar.APIError:
			return "", fmt.Errorf("kavenegar API error: %w", err)
		case *kavenegar.HTTPError:
			return "", fmt.Errorf("kavenegar HTTP error: %w", err)
		default:
			return "", fmt.Errorf("failed to send SMS: %w", err)
		}
	}

	if len(res) == 0 {
		return "", fmt.Errorf("no response entries from Kavenegar")
	}
	return fmt.Sprintf("%d", res[0].MessageID), nil
}
