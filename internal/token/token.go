// Package token signs display-confirmation tokens. The decision endpoint
// hands the GUI a confirm URL carrying one; the confirm endpoint verifies
// it before counting the display, so a display event can never be forged
// for an ad that was not actually served.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalid = errors.New("invalid token")
	ErrExpired = errors.New("token expired")
)

// payload structure for encoding/decoding
type payload struct {
	DecisionID string `json:"d"`
	AdID       string `json:"a"`
	BoardID    string `json:"b"`
	TS         int64  `json:"t"`
}

// Generate creates a signed token binding a decision to the ad it
// selected and the board that made it.
func Generate(decisionID, adID, boardID string, secret []byte) (string, error) {
	pl := payload{
		DecisionID: decisionID,
		AdID:       adID,
		BoardID:    boardID,
		TS:         time.Now().Unix(),
	}
	data, err := json.Marshal(pl)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	sig := mac.Sum(nil)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(data) + "." + enc.EncodeToString(sig), nil
}

// Verify checks the token integrity and expiry and returns the payload
// values. A ttl of zero disables the expiry check.
func Verify(token string, secret []byte, ttl time.Duration) (out struct {
	DecisionID string
	AdID       string
	BoardID    string
}, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return out, ErrInvalid
	}
	enc := base64.RawURLEncoding
	data, err := enc.DecodeString(parts[0])
	if err != nil {
		return out, ErrInvalid
	}
	sig, err := enc.DecodeString(parts[1])
	if err != nil {
		return out, ErrInvalid
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(data)
	if !hmac.Equal(mac.Sum(nil), sig) {
		return out, ErrInvalid
	}

	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return out, ErrInvalid
	}
	if ttl > 0 && time.Since(time.Unix(pl.TS, 0)) > ttl {
		return out, ErrExpired
	}
	out.DecisionID = pl.DecisionID
	out.AdID = pl.AdID
	out.BoardID = pl.BoardID
	return out, nil
}
