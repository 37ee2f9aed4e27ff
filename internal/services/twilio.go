package services

import (
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/scrapify/scrapify-backend/internal/config"
)

// SMSSender sends a text message to a phone number
type SMSSender interface {
	SendSMS(to, body string) error
}

type TwilioService struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(cfg config.TwilioConfig) (*TwilioService, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioService{
		client: client,
		from:   cfg.PhoneNumber,
	}, nil
}

// SendSMS sends a plain SMS via Twilio
func (t *TwilioService) SendSMS(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}
	return nil
}
