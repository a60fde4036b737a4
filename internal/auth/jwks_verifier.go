package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pantrypal/api/internal/config"
)

const discoveryTimeout = 30 * time.Second

// TokenVerifier validates bearer tokens from an external identity provider
type TokenVerifier interface {
	Validate(tokenString string) (*Claims, error)
	Close() error
}

// Claims are the ID/access token claims we read from the provider
type Claims struct {
	UserID            string `json:"sub"`
	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	jwt.RegisteredClaims
}

// DisplayName prefers the full name and falls back to preferred_username
func (c *Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.PreferredUsername
}

// JWKSVerifier checks RS/ES signed tokens against the issuer's published keys
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	parser *jwt.Parser
	cancel context.CancelFunc
}

// NewJWKSVerifier discovers the issuer's jwks_uri and loads its key set. Keys
// are refreshed in the background until ctx is done or Close is called.
func NewJWKSVerifier(ctx context.Context, cfg *config.OIDCConfig) (*JWKSVerifier, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("oidc issuer is required")
	}

	discoverCtx, cancelDiscover := context.WithTimeout(ctx, discoveryTimeout)
	defer cancelDiscover()

	jwksURL, err := discoverJWKSURL(discoverCtx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover JWKS URL: %w", err)
	}

	refreshCtx, cancel := context.WithCancel(ctx)
	jwks, err := keyfunc.NewDefaultCtx(refreshCtx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", jwksURL, err)
	}

	opts := []jwt.ParserOption{
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384"}),
	}
	if cfg.ClientID != "" {
		opts = append(opts, jwt.WithAudience(cfg.ClientID))
	}

	return &JWKSVerifier{
		jwks:   jwks,
		parser: jwt.NewParser(opts...),
		cancel: cancel,
	}, nil
}

// discoverJWKSURL reads the OpenID discovery document. The document must name
// the same issuer we were configured with.
func discoverJWKSURL(ctx context.Context, issuer string) (string, error) {
	discoveryURL := strings.TrimRight(issuer, "/") + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create discovery request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var doc struct {
		Issuer  string `json:"issuer"`
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if doc.Issuer != "" && strings.TrimRight(doc.Issuer, "/") != strings.TrimRight(issuer, "/") {
		return "", fmt.Errorf("discovery document issuer %q does not match %q", doc.Issuer, issuer)
	}
	if doc.JWKSURI == "" {
		return "", errors.New("jwks_uri not found in discovery document")
	}
	return doc.JWKSURI, nil
}

// Validate verifies signature, issuer, expiry and (when configured) audience
func (v *JWKSVerifier) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Close stops the background key refresh
func (v *JWKSVerifier) Close() error {
	v.cancel()
	return nil
}
