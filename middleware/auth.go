package middleware

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "hearth-backend/errors"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	userIDSinkKey contextKey = "user_id_sink"
)

const (
	jwksRefreshInterval = time.Hour
	// jwksMinRefetch bounds how often an unknown kid can trigger a fetch.
	jwksMinRefetch = time.Minute
)

// AuthMiddleware accepts HS256 tokens signed with the shared secret and
// ES256 tokens whose key is published in the issuer's JWKS.
type AuthMiddleware struct {
	jwtSecret string
	issuerURL string
	client    *http.Client

	mu         sync.RWMutex
	publicKeys  map[string]*ecdsa.PublicKey
	lastFetch   time.Time
	lastAttempt time.Time
}

func NewAuthMiddleware(jwtSecret, issuerURL string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		issuerURL: strings.TrimSuffix(issuerURL, "/"),
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			respondAuthError(w, apperrors.Unauthorized("Missing or malformed Authorization header."))
			return
		}

		token, err := jwt.Parse(tokenString, m.keyFunc(r.Context()), jwt.WithValidMethods([]string{"HS256", "ES256"}))
		if err != nil {
			zap.L().Debug("Token rejected",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			if errors.Is(err, jwt.ErrTokenExpired) {
				respondAuthError(w, apperrors.TokenExpired())
				return
			}
			respondAuthError(w, apperrors.TokenInvalid())
			return
		}

		userID, err := token.Claims.GetSubject()
		if err != nil || userID == "" {
			respondAuthError(w, apperrors.TokenInvalid())
			return
		}

		if sink, ok := r.Context().Value(userIDSinkKey).(*string); ok {
			*sink = userID
		}
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// withUserIDSink lets an outer middleware learn who the caller was once
// Authenticate has run further down the chain.
func withUserIDSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, userIDSinkKey, sink)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

func (m *AuthMiddleware) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		switch token.Method.Alg() {
		case "HS256":
			if m.jwtSecret == "" {
				return nil, errors.New("jwt secret not configured")
			}
			// Supabase hands out base64 secrets; plain strings are used as is.
			if decoded, err := base64.StdEncoding.DecodeString(m.jwtSecret); err == nil {
				return decoded, nil
			}
			return []byte(m.jwtSecret), nil
		case "ES256":
			kid, _ := token.Header["kid"].(string)
			return m.publicKey(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
	}
}

func (m *AuthMiddleware) publicKey(ctx context.Context, kid string) (*ecdsa.PublicKey, error) {
	m.mu.RLock()
	key, fresh := m.cachedKey(kid)
	m.mu.RUnlock()
	if key != nil && fresh {
		return key, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key, fresh = m.cachedKey(kid)
	if key != nil && fresh {
		return key, nil
	}
	if time.Since(m.lastAttempt) < jwksMinRefetch {
		if key != nil {
			return key, nil
		}
		return nil, fmt.Errorf("key %q not found in JWKS (%d keys available)", kid, len(m.publicKeys))
	}

	m.lastAttempt = time.Now()
	keys, err := m.fetchJWKS(ctx)
	if err != nil {
		if key != nil {
			zap.L().Warn("JWKS refresh failed, using cached key", zap.Error(err))
			return key, nil
		}
		return nil, err
	}
	m.publicKeys = keys
	m.lastFetch = m.lastAttempt

	if key, _ := m.cachedKey(kid); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("key %q not found in JWKS (%d keys available)", kid, len(m.publicKeys))
}

// cachedKey must be called with mu held. An empty kid is only accepted when
// the JWKS holds a single key.
func (m *AuthMiddleware) cachedKey(kid string) (*ecdsa.PublicKey, bool) {
	fresh := time.Since(m.lastFetch) < jwksRefreshInterval
	if key, ok := m.publicKeys[kid]; ok {
		return key, fresh
	}
	if kid == "" && len(m.publicKeys) == 1 {
		for _, key := range m.publicKeys {
			return key, fresh
		}
	}
	return nil, false
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Crv string `json:"crv"`
		X   string `json:"x"`
		Y   string `json:"y"`
	} `json:"keys"`
}

func (m *AuthMiddleware) fetchJWKS(ctx context.Context) (map[string]*ecdsa.PublicKey, error) {
	if m.issuerURL == "" {
		return nil, errors.New("AUTH_ISSUER_URL not configured")
	}

	urls := []string{
		m.issuerURL + "/auth/v1/.well-known/jwks.json",
		m.issuerURL + "/.well-known/jwks.json",
	}

	var doc jwksDocument
	var lastErr error
	for _, url := range urls {
		lastErr = m.getJSON(ctx, url, &doc)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", lastErr)
	}

	keys := make(map[string]*ecdsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "EC" {
			continue
		}
		x, err := base64.RawURLEncoding.DecodeString(k.X)
		if err != nil {
			continue
		}
		y, err := base64.RawURLEncoding.DecodeString(k.Y)
		if err != nil {
			continue
		}
		keys[k.Kid] = &ecdsa.PublicKey{
			Curve: curve(k.Crv),
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		}
	}
	zap.L().Info("Loaded JWKS", zap.Int("keys", len(keys)))
	return keys, nil
}

func (m *AuthMiddleware) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func curve(crv string) elliptic.Curve {
	switch crv {
	case "P-384":
		return elliptic.P384()
	case "P-521":
		return elliptic.P521()
	default:
		return elliptic.P256()
	}
}

func respondAuthError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.GetHTTPStatus(appErr.Type))
	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": appErr.Message,
		"code":  string(appErr.Code),
	}); err != nil {
		zap.L().Error("Failed to encode auth error", zap.Error(err))
	}
}
