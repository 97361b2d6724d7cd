package paymentgateway

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid payos signature")

func sign(key, data string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPaymentRequest signs the five fields PayOS checks on link creation,
// in alphabetical order.
func SignPaymentRequest(checksumKey string, amount int64, cancelURL, description string, orderCode int64, returnURL string) string {
	data := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		amount, cancelURL, description, orderCode, returnURL)
	return sign(checksumKey, data)
}

// SignData signs a JSON object the way PayOS signs webhook and response data:
// keys sorted ascending, key=value joined by "&", null as empty string and
// nested arrays or objects JSON-encoded.
func SignData(checksumKey string, raw []byte) (string, error) {
	canonical, err := CanonicalData(raw)
	if err != nil {
		return "", err
	}
	return sign(checksumKey, canonical), nil
}

// VerifyData compares signature against the signature of raw in constant time.
func VerifyData(checksumKey string, raw []byte, signature string) error {
	expected, err := SignData(checksumKey, raw)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

func CanonicalData(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil {
		return "", fmt.Errorf("decode signed data: %w", err)
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := canonicalValue(data[k])
		if err != nil {
			return "", err
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "&"), nil
}

func canonicalValue(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		if val == "null" || val == "undefined" {
			return "", nil
		}
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		// encoding/json sorts map keys, matching the sorted nested objects PayOS signs.
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(val); err != nil {
			return "", fmt.Errorf("encode nested value: %w", err)
		}
		return strings.TrimSuffix(buf.String(), "\n"), nil
	}
}
