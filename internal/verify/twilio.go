package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const twilioBaseURL = "https://verify.twilio.com"

// Twilio error codes worth telling the user about.
// https://www.twilio.com/docs/api/errors
const (
	twilioCodeInvalidParameter = 60200
	twilioCodeMaxSendAttempts  = 60203
	twilioCodeMaxCheckAttempts = 60202
	twilioCodeTooManyRequests  = 20429
	twilioCodeBlockedNumber    = 60605
	twilioCodeInvalidPhone     = 21211
)

// TwilioVerifier implements Verifier against the Twilio Verify v2 API.
type TwilioVerifier struct {
	client     *resty.Client
	serviceSID string
	logger     *zap.Logger
}

type twilioVerification struct {
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewTwilioVerifier builds a verifier using account SID / auth token
// basic auth and the given Verify service.
func NewTwilioVerifier(accountSID, authToken, serviceSID string, logger *zap.Logger) *TwilioVerifier {
	client := resty.New().
		SetBaseURL(twilioBaseURL).
		SetTimeout(15 * time.Second).
		SetBasicAuth(accountSID, authToken).
		SetHeader("Accept", "application/json")

	return &TwilioVerifier{
		client:     client,
		serviceSID: serviceSID,
		logger:     logger,
	}
}

// SetBaseURL points the verifier at a different endpoint. Tests use it
// with an httptest server.
func (v *TwilioVerifier) SetBaseURL(baseURL string) {
	v.client.SetBaseURL(baseURL)
}

func (v *TwilioVerifier) SendCode(ctx context.Context, phone string) error {
	var result twilioVerification
	var apiErr twilioError

	resp, err := v.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":      phone,
			"Channel": "sms",
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/v2/Services/%s/Verifications", v.serviceSID))

	if err != nil {
		v.logger.Error("twilio verification request failed", zap.Error(err))
		return ErrDeliveryFailed
	}

	if resp.IsError() {
		v.logger.Warn("twilio rejected verification send",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("twilio_code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return mapTwilioError(apiErr.Code, ErrDeliveryFailed)
	}

	return nil
}

func (v *TwilioVerifier) CheckCode(ctx context.Context, phone, code string) error {
	var result twilioVerification
	var apiErr twilioError

	resp, err := v.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   phone,
			"Code": code,
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(fmt.Sprintf("/v2/Services/%s/VerificationCheck", v.serviceSID))

	if err != nil {
		v.logger.Error("twilio verification check failed", zap.Error(err))
		return ErrProvider
	}

	if resp.IsError() {
		v.logger.Warn("twilio rejected verification check",
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("twilio_code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return mapTwilioError(apiErr.Code, ErrCodeRejected)
	}

	// Anything other than an approved check counts as a bad code.
	if result.Status != "approved" {
		return ErrCodeRejected
	}

	return nil
}

func mapTwilioError(code int, fallback error) error {
	switch code {
	case twilioCodeInvalidParameter, twilioCodeInvalidPhone:
		return ErrInvalidNumber
	case twilioCodeMaxSendAttempts, twilioCodeMaxCheckAttempts, twilioCodeTooManyRequests:
		return ErrRateLimited
	case twilioCodeBlockedNumber:
		return ErrBlockedNumber
	default:
		return fallback
	}
}
