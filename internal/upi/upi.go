// Package upi builds the UPI pay URI shown to desktop clients and renders it as a QR code.
package upi

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/shopspring/decimal"
)

// TokenAmountMinor is the token payment in minor currency units (paise for INR).
const TokenAmountMinor = 100

// TokenAmount is TokenAmountMinor in major units.
func TokenAmount() decimal.Decimal {
	return decimal.New(TokenAmountMinor, -2)
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
}

// DisplayAmount renders an amount the way the pay control shows it, e.g. "₹1".
func DisplayAmount(amount decimal.Decimal, currency string) string {
	sym, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		sym = strings.ToUpper(currency) + " "
	}
	if amount.Equal(amount.Truncate(0)) {
		return sym + amount.StringFixed(0)
	}
	return sym + amount.StringFixed(2)
}

type PayRequest struct {
	PayeeAddress string
	PayeeName    string
	MerchantCode string
	LinkID       string
	Note         string
	Amount       decimal.Decimal
	Currency     string
}

// DeepLink returns the upi://pay URI. Parameters keep a fixed order so the same request
// always yields the same QR code. Without a link id the transaction ids fall back to
// TXN/REF plus the Unix time in milliseconds.
func DeepLink(req PayRequest, now time.Time) string {
	tid, tr := req.LinkID, req.LinkID
	if req.LinkID == "" {
		ms := now.UnixMilli()
		tid = fmt.Sprintf("TXN%d", ms)
		tr = fmt.Sprintf("REF%d", ms)
	}
	mc := req.MerchantCode
	if mc == "" {
		mc = "0000"
	}
	params := [][2]string{
		{"pa", req.PayeeAddress},
		{"pn", req.PayeeName},
		{"mc", mc},
		{"tid", tid},
		{"tr", tr},
		{"tn", req.Note},
		{"am", req.Amount.StringFixed(2)},
		{"cu", strings.ToUpper(req.Currency)},
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p[0]+"="+encodeComponent(p[1]))
	}
	return "upi://pay?" + strings.Join(parts, "&")
}

// encodeComponent escapes like encodeURIComponent: spaces become %20, '@' is escaped.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Matrix is a QR code as rows of dark (true) and light modules.
type Matrix [][]bool

func Encode(content string) (Matrix, error) {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	b := code.Bounds()
	m := make(Matrix, b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := make([]bool, b.Dx())
		for x := b.Min.X; x < b.Max.X; x++ {
			row[x-b.Min.X] = isDark(code.At(x, y))
		}
		m[y-b.Min.Y] = row
	}
	return m, nil
}

func isDark(c color.Color) bool {
	r, g, bl, _ := c.RGBA()
	return r+g+bl < 3*0x8000
}

// Text renders m with half-block characters, two module rows per line, inside a quiet zone.
func (m Matrix) Text() string {
	const quiet = 2
	size := len(m)
	at := func(x, y int) bool {
		x -= quiet
		y -= quiet
		if y < 0 || y >= size || x < 0 || x >= len(m[y]) {
			return false
		}
		return m[y][x]
	}
	var sb strings.Builder
	total := size + 2*quiet
	for y := 0; y < total; y += 2 {
		for x := 0; x < total; x++ {
			top, bottom := at(x, y), at(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// WritePNG scales the QR code for content to size x size pixels and writes it as PNG.
func WritePNG(w io.Writer, content string, size int) error {
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return fmt.Errorf("scale qr: %w", err)
	}
	return png.Encode(w, image.Image(scaled))
}
