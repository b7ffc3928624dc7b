package otl

import (
	"errors"
	"net/url"
	"strings"

	"github.com/notanas/notanas-cli/internal/constants"
)

// ErrEmptyToken is returned when no token can be extracted.
var ErrEmptyToken = errors.New("one-time link token is empty")

// ParseToken accepts a bare token, a share link ({server}/onetimelink/{token})
// or a redeem URL ({server}/otl?id={token}). It returns the token and, for
// absolute links, the server URL they point at.
func ParseToken(tokenOrLink string) (token, serverURL string, err error) {
	s := strings.TrimSpace(tokenOrLink)
	if s == "" {
		return "", "", ErrEmptyToken
	}

	u, parseErr := url.Parse(s)
	if parseErr == nil && u.Scheme != "" && u.Host != "" {
		serverURL = u.Scheme + "://" + u.Host
	}

	switch {
	case parseErr == nil && u.Query().Get("id") != "":
		token = u.Query().Get("id")
		if i := strings.Index(u.Path, constants.OTLRedeemPath); i > 0 && serverURL != "" {
			serverURL += u.Path[:i]
		}
	case strings.Contains(s, constants.OTLShareLinkRoute):
		i := strings.LastIndex(s, constants.OTLShareLinkRoute)
		token = s[i+len(constants.OTLShareLinkRoute):]
		if serverURL != "" {
			serverURL = strings.TrimRight(s[:i], "/")
		}
	default:
		token = s
		serverURL = ""
	}

	token = strings.Trim(token, "/ ")
	if j := strings.IndexAny(token, "?#"); j >= 0 {
		token = token[:j]
	}
	if token == "" {
		return "", "", ErrEmptyToken
	}
	return token, serverURL, nil
}
