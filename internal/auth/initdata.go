// Package auth verifies Telegram Mini App initData payloads.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"

	"github.com/megusto0/tgintegration/internal"
)

var (
	ErrInvalidSignature = errors.New("auth: invalid signature")
	ErrMalformedPayload = errors.New("auth: malformed payload")
	ErrForbidden        = errors.New("auth: user not allowed")
)

// webAppDomain is the domain-separation constant Telegram prescribes for
// deriving the WebApp signing key from the bot token.
const webAppDomain = "WebAppData"

// Verify checks the signature of a raw initData string against the bot
// token and returns the embedded user when it is on the allow-list.
// Pure function of its inputs; callers must not log initData or the token.
func Verify(initData, botToken string, allowed map[int64]bool) (*internal.Identity, error) {
	if initData == "" {
		return nil, ErrMalformedPayload
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrMalformedPayload
	}
	received := values.Get("hash")
	if received == "" {
		return nil, ErrMalformedPayload
	}
	values.Del("hash")

	if !hmac.Equal([]byte(computeHash(values, botToken)), []byte(received)) {
		return nil, ErrInvalidSignature
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, ErrMalformedPayload
	}
	var user internal.Identity
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, ErrMalformedPayload
	}
	if user.ID == 0 {
		return nil, ErrMalformedPayload
	}
	if !allowed[user.ID] {
		return nil, ErrForbidden
	}
	return &user, nil
}

// computeHash builds the data-check string (sorted key=value lines) and
// signs it with the key derived from the bot token.
func computeHash(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmacSHA256([]byte(webAppDomain), []byte(botToken))
	return hex.EncodeToString(hmacSHA256(secret, []byte(checkString)))
}

func hmacSHA256(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}
