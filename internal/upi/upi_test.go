package upi

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payRequest(linkID string) PayRequest {
	return PayRequest{
		PayeeAddress: "merchant@upi",
		PayeeName:    "COD Verifier",
		LinkID:       linkID,
		Note:         "COD Token Payment",
		Amount:       TokenAmount(),
		Currency:     "INR",
	}
}

func TestDeepLink_WithLinkID(t *testing.T) {
	got := DeepLink(payRequest("plink_1"), time.Unix(0, 0))
	assert.Equal(t,
		"upi://pay?pa=merchant%40upi&pn=COD%20Verifier&mc=0000&tid=plink_1&tr=plink_1&tn=COD%20Token%20Payment&am=1.00&cu=INR",
		got)
}

func TestDeepLink_FallsBackToTimestampReferences(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	got := DeepLink(payRequest(""), now)
	assert.Contains(t, got, "tid=TXN1700000000123")
	assert.Contains(t, got, "tr=REF1700000000123")
}

func TestTokenAmountAndDisplay(t *testing.T) {
	assert.Equal(t, "1.00", TokenAmount().StringFixed(2))
	assert.Equal(t, "₹1", DisplayAmount(TokenAmount(), "INR"))
	assert.Equal(t, "$1", DisplayAmount(TokenAmount(), "usd"))
	assert.Equal(t, "£1.50", DisplayAmount(decimal.RequireFromString("1.5"), "GBP"))
	assert.Equal(t, "JPY 1", DisplayAmount(TokenAmount(), "JPY"))
}

func TestEncode_ProducesSquareMatrix(t *testing.T) {
	m, err := Encode(DeepLink(payRequest("plink_1"), time.Unix(0, 0)))
	require.NoError(t, err)
	require.NotEmpty(t, m)
	for _, row := range m {
		assert.Len(t, row, len(m))
	}
	// Finder pattern: top-left module is always dark.
	assert.True(t, m[0][0])

	text := m.Text()
	assert.Equal(t, (len(m)+4+1)/2, strings.Count(text, "\n"))
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, "upi://pay?pa=merchant%40upi", 200))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}
