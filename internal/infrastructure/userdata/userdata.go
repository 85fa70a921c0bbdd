// Package userdata resolves user display names from the identity provider.
// A background loop keeps a client-credentials token fresh; lookups go
// through a Redis read-through cache so event payloads do not hammer the
// provider.
package userdata

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/folivafy/folivafy/internal/app/config"
	"github.com/folivafy/folivafy/pkg/logger"
)

const (
	cacheKeyPrefix = "folivafy:userinfo:"
	cacheTTL       = time.Hour
)

type Service struct {
	cfg   config.UserdataConfig
	http  *http.Client
	cache *redis.Client
	log   *logger.Logger

	mu    sync.RWMutex
	token string
}

// New builds the service. redisURL may be empty; lookups then always hit
// the provider.
func New(cfg config.UserdataConfig, redisURL string, log *logger.Logger) (*Service, error) {
	transport := http.DefaultTransport
	if cfg.AcceptInvalidCerts {
		log.Warn("accepting invalid identity provider certificates")
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 4 * time.Second
	}

	var cache *redis.Client
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		cache = redis.NewClient(opts)
	}

	return &Service{
		cfg:   cfg,
		http:  &http.Client{Transport: transport, Timeout: timeout},
		cache: cache,
		log:   log.Named("userdata"),
	}, nil
}

// Enabled reports whether an identity provider is configured at all.
func (s *Service) Enabled() bool {
	return s.cfg.TokenURL != "" && s.cfg.UserinfoURL != ""
}

// Run refreshes the service token until ctx is canceled. The first refresh
// happens immediately.
func (s *Service) Run(ctx context.Context) {
	if !s.Enabled() {
		s.log.Info("no identity provider configured, user names resolve to ids")
		return
	}

	interval := s.cfg.RefreshInterval
	if interval <= 0 {
		interval = 165 * time.Second
	}

	if err := s.refreshToken(ctx); err != nil {
		s.log.Error("initial token refresh failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.refreshToken(ctx); err != nil {
				s.log.Error("token refresh failed", "error", err)
			}
		}
	}
}

func (s *Service) refreshToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch service token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return fmt.Errorf("token endpoint returned empty access token")
	}

	s.mu.Lock()
	s.token = body.AccessToken
	s.mu.Unlock()
	return nil
}

func (s *Service) accessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// DisplayName resolves a user id to its display name. Failures degrade to
// the id string so callers never block on the identity provider.
func (s *Service) DisplayName(ctx context.Context, userID uuid.UUID) string {
	if !s.Enabled() {
		return userID.String()
	}

	key := cacheKeyPrefix + userID.String()
	if s.cache != nil {
		if name, err := s.cache.Get(ctx, key).Result(); err == nil && name != "" {
			return name
		}
	}

	name, err := s.fetchDisplayName(ctx, userID)
	if err != nil {
		s.log.Warn("userinfo lookup failed", "user", userID, "error", err)
		return userID.String()
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, name, cacheTTL).Err(); err != nil {
			s.log.Warn("failed to cache userinfo", "user", userID, "error", err)
		}
	}
	return name
}

func (s *Service) fetchDisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	endpoint := strings.TrimSuffix(s.cfg.UserinfoURL, "/") + "/" + userID.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken())

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		DisplayName string `json:"displayName"`
		Name        string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if body.DisplayName != "" {
		return body.DisplayName, nil
	}
	if body.Name != "" {
		return body.Name, nil
	}
	return "", fmt.Errorf("userinfo response carries no name")
}

// Close releases the cache connection.
func (s *Service) Close() error {
	if s.cache != nil {
		return s.cache.Close()
	}
	return nil
}
