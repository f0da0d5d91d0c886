package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the header carrying the signature of a delivery.
const SignatureHeader = "X-Webhook-Signature"

// DefaultTolerance is the maximum accepted age of a signature.
const DefaultTolerance = 5 * time.Minute

// Sign returns a signature header value binding payload to the timestamp:
//
//	t=<unix seconds>,v1=<hex HMAC-SHA256(secret, "<t>.<payload>")>
func Sign(secret string, payload []byte, ts time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	unix := ts.Unix()
	return fmt.Sprintf("t=%d,v1=%s", unix, hex.EncodeToString(computeMAC(secret, unix, payload))), nil
}

// Verify checks a signature header produced by Sign. A tolerance of zero
// disables the timestamp check.
func Verify(secret string, payload []byte, header string, tolerance time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}

	ts, sigs, err := parseHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > tolerance || age < -time.Minute {
			return fmt.Errorf("%w: age %v", ErrSignatureExpired, age.Round(time.Second))
		}
	}

	expected := computeMAC(secret, ts, payload)
	for _, sig := range sigs {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
}

func computeMAC(secret string, ts int64, payload []byte) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	h.Write([]byte("."))
	h.Write(payload)
	return h.Sum(nil)
}

// parseHeader accepts several v1 entries so secrets can be rotated.
func parseHeader(header string) (int64, [][]byte, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: header is missing", ErrInvalidSignature)
	}

	var (
		ts   int64
		sigs [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return 0, nil, fmt.Errorf("%w: malformed header", ErrInvalidSignature)
		}
		switch key {
		case "t":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: invalid timestamp", ErrInvalidSignature)
			}
			ts = n
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			sigs = append(sigs, sig)
		}
	}

	if ts == 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: missing timestamp or signature", ErrInvalidSignature)
	}
	return ts, sigs, nil
}
