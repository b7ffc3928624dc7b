package models

import (
	"encoding/json"
	"time"
)

// AuthRequest is the body of POST /auth.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the issued bearer token.
type AuthResponse struct {
	Token string `json:"token"`
}

// OTLGrant describes a requested one-time link.
type OTLGrant struct {
	FileID       string
	Expiry       time.Duration
	MaxDownloads int
}

// OTLResponse carries a one-time link token. Servers have been seen sending
// either "Token" or "token".
type OTLResponse struct {
	Token string
}

// UnmarshalJSON accepts both spellings of the token field.
func (r *OTLResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range []string{"Token", "token"} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		if s != "" {
			r.Token = s
			return nil
		}
	}
	r.Token = ""
	return nil
}
