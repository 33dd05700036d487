package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/airbusgeo/coverstore/interface/secrets"
	"github.com/goccy/go-json"
)

const (
	// AuthorizationHeader is the header key to get the authorization token
	AuthorizationHeader = "Authorization"
	tokenPrefix         = "Bearer "
)

var userTokenKey = "user"
var eventTokenKey = "event"

var errUnauthenticated = errors.New("invalid token")

// tokenAuth authenticates the bearer tokens
type tokenAuth struct {
	Token string
}

// Authenticate returns nil if token is "Bearer <t.Token>"
func (t tokenAuth) Authenticate(token string) error {
	if !strings.HasPrefix(token, tokenPrefix) {
		return fmt.Errorf(`missing "%s" prefix: %w`, tokenPrefix, errUnauthenticated)
	}
	if strings.TrimPrefix(token, tokenPrefix) != t.Token {
		return errUnauthenticated
	}
	return nil
}

// loadBearerAuths reads the tokens {"user": "...", "event": "..."} from the secret (or from the value itself)
func loadBearerAuths(ctx context.Context, secret string) (map[string]tokenAuth, error) {
	ba, err := secrets.Resolve(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("loadBearerAuths: failed to load bearer auth secret (%w)", err)
	}
	ma := make(map[string]string)
	if err = json.Unmarshal([]byte(ba), &ma); err != nil {
		return nil, fmt.Errorf("loadBearerAuths: failed to unmarshal bearer auth secret (%w)", err)
	}
	ret := make(map[string]tokenAuth)
	for k, v := range ma {
		ret[k] = tokenAuth{Token: v}
	}
	return ret, nil
}

// authenticate returns nil if one of the tokens is valid for the key, or if no token is defined for the key
func authenticate(bearerAuths map[string]tokenAuth, tokenKey string, tokens ...string) error {
	if bearerAuths[tokenKey].Token == "" {
		return nil
	}
	err := errUnauthenticated
	for _, token := range tokens {
		if token != "" {
			if err = bearerAuths[tokenKey].Authenticate(token); err == nil {
				return nil
			}
		}
	}
	return err
}

// requireToken is a middleware rejecting the requests without a valid token for the key
func (s *server) requireToken(tokenKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authenticate(s.bearerAuths, tokenKey, r.Header.Get(AuthorizationHeader)); err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
