package requestid

import (
	crand "crypto/rand"
	"math/big"
	"strings"
	"time"
)

// DefaultHeaderKey is the header the sync router echoes request ids on.
const DefaultHeaderKey = "X-Osr-Request-Id"

// ResolveHeaderKey returns the provided header key when non-empty,
// otherwise the default request id header key.
func ResolveHeaderKey(headerKey string) string {
	if v := strings.TrimSpace(headerKey); v != "" {
		return v
	}
	return DefaultHeaderKey
}

// FromHeader returns the caller-supplied id when it is usable, or a fresh one.
// Ids longer than 128 bytes or containing control characters are replaced.
func FromHeader(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > 128 || strings.IndexFunc(v, isControl) >= 0 {
		return Gen()
	}
	return v
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// Gen generates a request id: yyyymmddHHMMSSuuuuuu + 8 random digits.
func Gen() string {
	return timeString() + randomDigits(8)
}

func timeString() string {
	return strings.ReplaceAll(time.Now().Format("20060102150405.000000"), ".", "")
}

func randomDigits(n int) string {
	const digits = "0123456789"
	if n <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(digits[cryptoRandIntn(len(digits))])
	}
	return b.String()
}

func cryptoRandIntn(max int) int {
	if max <= 0 {
		return 0
	}
	nBig, err := crand.Int(crand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(nBig.Int64())
}
