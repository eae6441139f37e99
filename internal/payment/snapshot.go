package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/kouprey/storefront/internal/orders"
)

// EncodeSnapshot packs an order request into the opaque udf1 value:
// unpadded base64url over its JSON.
func EncodeSnapshot(req orders.Request) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeSnapshot reverses EncodeSnapshot for a value that made a round trip
// through the provider. Form transport may have turned '+' into spaces or
// percent-encoded the value, and either base64 alphabet is accepted with or
// without padding. Anything that does not decode yields ok == false.
func DecodeSnapshot(raw string) (*orders.Request, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	s := strings.ReplaceAll(raw, " ", "+")
	s, err := url.PathUnescape(s)
	if err != nil {
		return nil, false
	}

	s = strings.TrimRight(s, "=")
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}

	var req orders.Request
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, false
	}
	return &req, true
}
