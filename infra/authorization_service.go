package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tnqbao/gau-media-gateway/config"
)

type AuthorizationService struct {
	AuthorizationServiceURL string
	PrivateKey              string
	client                  *http.Client
}

func InitAuthorizationService(config *config.EnvConfig) *AuthorizationService {
	serviceURL := config.ExternalService.AuthorizationServiceURL
	if serviceURL == "" {
		panic("Authorization service URL is not configured")
	}

	privateKey := config.PrivateKey
	if privateKey == "" {
		panic("Private key is not configured")
	}

	return &AuthorizationService{
		AuthorizationServiceURL: serviceURL,
		PrivateKey:              privateKey,
		client:                  &http.Client{Timeout: 5 * time.Second},
	}
}

// CheckAccessToken asks the authorization service whether token is still valid.
func (s *AuthorizationService) CheckAccessToken(ctx context.Context, token string) error {
	endpoint := fmt.Sprintf("%s/api/v2/authorization/token/validate?token=%s",
		s.AuthorizationServiceURL, url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Private-Key", s.PrivateKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("invalid token: %s", string(raw))
	}

	return nil
}
