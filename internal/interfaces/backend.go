package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

// Backend is the store's verification API. Every call carries the page nonce.
type Backend interface {
	SendOTP(ctx context.Context, phone string, countryCode models.CountryCode, phoneNumber string) (*models.SendOTPResult, error)
	VerifyOTP(ctx context.Context, otp string) (string, error)
	CreatePaymentLink(ctx context.Context) (*models.PaymentLinkInfo, error)
	CheckPaymentStatus(ctx context.Context, linkID string) (*models.PaymentStatus, error)
	VerifyTokenPayment(ctx context.Context, paymentID, linkID string) (string, error)
	// VerifyTestModePayment confirms a simulated payment without a gateway round trip.
	VerifyTestModePayment(ctx context.Context) (string, error)
}
