// Package backend talks to the store's verification endpoints. Requests are form posts
// to a single endpoint selected by the "action" field, and every response is the
// {"success": bool, "data": ...} envelope.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/cod-verifier/internal/interfaces"
	"github.com/akylbek/payment-system/cod-verifier/internal/models"
	"github.com/akylbek/payment-system/cod-verifier/internal/telemetry"
)

const (
	ActionSendOTP            = "cod_send_otp"
	ActionVerifyOTP          = "cod_verify_otp"
	ActionCreatePaymentLink  = "cod_create_payment_link"
	ActionCheckPaymentStatus = "cod_check_payment_status"
	ActionVerifyTokenPayment = "cod_verify_token_payment"
)

var _ interfaces.Backend = (*Client)(nil)

type Client struct {
	http     *resty.Client
	endpoint string
	nonce    string
}

func NewClient(endpoint, nonce string, timeout time.Duration) *Client {
	return &Client{
		http:     resty.New().SetTimeout(timeout),
		endpoint: endpoint,
		nonce:    nonce,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, action string, fields map[string]string) (json.RawMessage, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "backend."+action)
	defer span.End()
	span.SetAttributes(attribute.String("cod.action", action))

	form := map[string]string{"action": action, "nonce": c.nonce}
	for k, v := range fields {
		form[k] = v
	}

	req := c.http.R().SetContext(ctx).SetFormData(form)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := req.Post(c.endpoint)
	duration := time.Since(start)
	telemetry.BackendDuration.WithLabelValues(action).Observe(duration.Seconds())

	data, outcome, err := decode(action, resp, err)
	telemetry.BackendRequests.WithLabelValues(action, outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		telemetry.Logger.Warn("Backend request failed",
			zap.String("action", action),
			zap.String("outcome", outcome),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.Logger.Debug("Backend request succeeded",
		zap.String("action", action),
		zap.Duration("duration", duration),
	)
	return data, nil
}

func decode(action string, resp *resty.Response, err error) (json.RawMessage, string, error) {
	if err != nil {
		return nil, "transport", &Error{Kind: KindTransport, Action: action, Err: err}
	}
	if resp.IsError() {
		return nil, "transport", &Error{Kind: KindTransport, Action: action, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, "transport", &Error{Kind: KindTransport, Action: action, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !env.Success {
		return nil, "rejected", &Error{Kind: KindRejected, Action: action, Message: messageFrom(env.Data)}
	}
	return env.Data, "ok", nil
}

// messageFrom accepts data as a bare string or as an object with a message field.
func messageFrom(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.Message
	}
	return ""
}

// flexBool decodes true, 1 and "1" as true.
type flexBool bool

func (b *flexBool) UnmarshalJSON(p []byte) error {
	switch string(bytes.Trim(p, `"`)) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

func (c *Client) SendOTP(ctx context.Context, phone string, countryCode models.CountryCode, phoneNumber string) (*models.SendOTPResult, error) {
	data, err := c.post(ctx, ActionSendOTP, map[string]string{
		"phone":        phone,
		"country_code": string(countryCode),
		"phone_number": phoneNumber,
	})
	if err != nil {
		return nil, err
	}
	var body struct {
		Message  string   `json:"message"`
		TestMode flexBool `json:"test_mode"`
		OTP      string   `json:"otp"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return &models.SendOTPResult{Message: messageFrom(data)}, nil
	}
	return &models.SendOTPResult{Message: body.Message, TestMode: bool(body.TestMode), OTP: body.OTP}, nil
}

func (c *Client) VerifyOTP(ctx context.Context, otp string) (string, error) {
	data, err := c.post(ctx, ActionVerifyOTP, map[string]string{"otp": otp})
	if err != nil {
		return "", err
	}
	return messageFrom(data), nil
}

func (c *Client) CreatePaymentLink(ctx context.Context) (*models.PaymentLinkInfo, error) {
	data, err := c.post(ctx, ActionCreatePaymentLink, nil)
	if err != nil {
		return nil, err
	}
	var extra map[string]any
	if err := json.Unmarshal(data, &extra); err != nil {
		return nil, &Error{Kind: KindTransport, Action: ActionCreatePaymentLink, Err: fmt.Errorf("decode payment link: %w", err)}
	}
	info := &models.PaymentLinkInfo{Extra: extra}
	info.LinkID, _ = extra["link_id"].(string)
	info.Key, _ = extra["key"].(string)
	return info, nil
}

func (c *Client) CheckPaymentStatus(ctx context.Context, linkID string) (*models.PaymentStatus, error) {
	data, err := c.post(ctx, ActionCheckPaymentStatus, map[string]string{"link_id": linkID})
	if err != nil {
		return nil, err
	}
	var status models.PaymentStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, &Error{Kind: KindTransport, Action: ActionCheckPaymentStatus, Err: fmt.Errorf("decode status: %w", err)}
	}
	return &status, nil
}

func (c *Client) VerifyTokenPayment(ctx context.Context, paymentID, linkID string) (string, error) {
	data, err := c.post(ctx, ActionVerifyTokenPayment, map[string]string{
		"payment_id":      paymentID,
		"payment_link_id": linkID,
	})
	if err != nil {
		return "", err
	}
	return messageFrom(data), nil
}

func (c *Client) VerifyTestModePayment(ctx context.Context) (string, error) {
	data, err := c.post(ctx, ActionVerifyTokenPayment, map[string]string{"test_mode": "1"})
	if err != nil {
		return "", err
	}
	return messageFrom(data), nil
}
