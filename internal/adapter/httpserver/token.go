package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// maxTokenLen rejects oversized Authorization headers before any decoding.
const maxTokenLen = 512

// TokenIssuer signs bearer tokens of the form
// base64url(user_id "\n" expires_unix) "." base64url(hmac_sha256).
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

// Issue returns a token for userID that expires after ttl.
func (ti *TokenIssuer) Issue(userID string, ttl time.Duration) string {
	exp := ti.now().Add(ttl).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(userID + "\n" + strconv.FormatInt(exp, 10)))
	return payload + "." + ti.sign(payload)
}

// Verify returns the user id of a well-signed, unexpired token. Every
// failure wraps domain.ErrUnauthorized.
func (ti *TokenIssuer) Verify(token string) (string, error) {
	if len(token) > maxTokenLen {
		return "", fmt.Errorf("%w: token too long", domain.ErrUnauthorized)
	}
	payload, sig, ok := strings.Cut(token, ".")
	if !ok || payload == "" || sig == "" {
		return "", fmt.Errorf("%w: malformed token", domain.ErrUnauthorized)
	}
	if !hmac.Equal([]byte(ti.sign(payload)), []byte(sig)) {
		return "", fmt.Errorf("%w: invalid token signature", domain.ErrUnauthorized)
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: invalid token encoding", domain.ErrUnauthorized)
	}
	userID, expStr, ok := strings.Cut(string(raw), "\n")
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: invalid token payload", domain.ErrUnauthorized)
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid token expiry", domain.ErrUnauthorized)
	}
	if !ti.now().Before(time.Unix(exp, 0)) {
		return "", fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}
	return userID, nil
}

func (ti *TokenIssuer) sign(payload string) string {
	mac := hmac.New(sha256.New, ti.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
