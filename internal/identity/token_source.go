package identity

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/tidyops/taskchain/internal/errors"
)

const apiVersion = "2019-08-01"

// ManagedTokenSource exchanges the platform-injected identity endpoint and
// header for a graph API bearer token. It implements oauth2.TokenSource.
//
// Tokens are fetched per call, never cached: every invocation of the service
// re-authenticates. Wrap in oauth2.ReuseTokenSource only if that changes.
type ManagedTokenSource struct {
	endpoint   string
	header     string
	resource   string
	httpClient *http.Client
}

// NewManagedTokenSource builds a token source for the given identity
// endpoint, identity header value, and target resource.
func NewManagedTokenSource(endpoint, header, resource string) *ManagedTokenSource {
	return &ManagedTokenSource{
		endpoint:   endpoint,
		header:     header,
		resource:   resource,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresOn   string `json:"expires_on"`
}

// Token fetches a fresh bearer token from the identity endpoint.
func (s *ManagedTokenSource) Token() (*oauth2.Token, error) {
	if s.endpoint == "" || s.header == "" {
		return nil, errors.E("identity.Token", errors.KindConfig,
			fmt.Errorf("managed identity environment is not configured"))
	}

	tokenURL := fmt.Sprintf("%s?api-version=%s&resource=%s",
		s.endpoint, apiVersion, url.QueryEscape(s.resource))

	req, err := http.NewRequest(http.MethodGet, tokenURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("X-IDENTITY-HEADER", s.header)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.E("identity.Token", errors.KindRemote,
			fmt.Errorf("failed to call identity endpoint: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.E("identity.Token", errors.KindRemote,
			fmt.Errorf("identity endpoint returned status %d", resp.StatusCode))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, errors.E("identity.Token", errors.KindMalformed,
			fmt.Errorf("failed to decode token response: %w", err))
	}

	if tokenResp.AccessToken == "" {
		return nil, errors.E("identity.Token", errors.KindMalformed,
			fmt.Errorf("identity endpoint returned an empty token"))
	}

	return &oauth2.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   "Bearer",
	}, nil
}
