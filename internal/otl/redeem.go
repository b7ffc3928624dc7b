package otl

import (
	"context"
	"errors"

	"github.com/notanas/notanas-cli/internal/api"
	"github.com/notanas/notanas-cli/internal/config"
	"github.com/notanas/notanas-cli/internal/download"
)

// Redeemer opens the payload behind a one-time link.
type Redeemer interface {
	RedeemOTL(ctx context.Context, serverURL, token string) (*api.Payload, error)
}

// Redeem downloads the file behind tokenOrLink into destDir. No session is
// needed. A link carrying its own server overrides serverURL. A rejected link
// yields api.ErrOTLExhausted and is not retried.
func Redeem(ctx context.Context, r Redeemer, serverURL, tokenOrLink, destDir string, opts download.Options) (*download.Result, error) {
	token, linkServer, err := ParseToken(tokenOrLink)
	if err != nil {
		return nil, err
	}
	if linkServer != "" {
		serverURL = linkServer
	}
	if serverURL == "" {
		return nil, config.ErrMissingServerURL
	}

	payload, err := r.RedeemOTL(ctx, serverURL, token)
	if err != nil {
		return nil, err
	}
	defer payload.Close()

	return download.Save(ctx, download.Source{
		Body:               payload.Body,
		ContentDisposition: payload.ContentDisposition,
		Size:               payload.Size,
	}, token, destDir, opts)
}

// IsExhausted reports whether err means the link can no longer be used.
func IsExhausted(err error) bool {
	return errors.Is(err, api.ErrOTLExhausted)
}
