package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/agentvault/agentvault-go/pkg/a2a"
	"github.com/agentvault/agentvault-go/pkg/errors"
)

// tokenSafetyMargin is subtracted from a token's advertised lifetime so a
// cached token is never presented moments before it expires.
const tokenSafetyMargin = 60 * time.Second

type cachedToken struct {
	token string
	// expiry is zero when the grant carried no expires_in; such tokens are
	// reused until the endpoint starts rejecting them.
	expiry time.Time
}

func (tok cachedToken) fresh(now time.Time) bool {
	return tok.token != "" && (tok.expiry.IsZero() || now.Before(tok.expiry))
}

// tokenCache maps service ids to their most recent grant, so schemes that
// share a token endpoint under different client credentials never see each
// other's tokens.  Reads and writes are serialised; the network fetch
// itself runs unlocked.
type tokenCache struct {
	mu     sync.Mutex
	grants map[string]cachedToken
}

func (tc *tokenCache) get(serviceID string) (cachedToken, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	tok, ok := tc.grants[serviceID]
	return tok, ok
}

func (tc *tokenCache) put(serviceID string, tok cachedToken) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.grants == nil {
		tc.grants = make(map[string]cachedToken)
	}

	tc.grants[serviceID] = tok
}

/*
authHeaders resolves the headers for one request: a single pass over the
card's declared auth schemes in order, using the first one this client
supports.  Schemes it cannot satisfy locally (bearer) are passed over.
*/
func (ac *AgentClient) authHeaders(ctx context.Context) (map[string]string, error) {
	for _, scheme := range ac.Card.AuthSchemes {
		switch scheme.Scheme {
		case a2a.SchemeAPIKey:
			return ac.apiKeyHeader(scheme)
		case a2a.SchemeOAuth2:
			return ac.oauthHeader(ctx, scheme)
		case a2a.SchemeNone:
			return nil, nil
		}
	}

	return nil, errors.Authenticationf(
		"agent %q offers no auth scheme this client supports", ac.Card.HumanReadableID)
}

func (ac *AgentClient) apiKeyHeader(scheme a2a.AgentAuthentication) (map[string]string, error) {
	serviceID := ac.Card.ServiceID(scheme)
	key := ac.keyManager.GetKey(serviceID)

	if key == "" {
		return nil, errors.Authenticationf(
			"no API key found for service %q (agent %q)", serviceID, ac.Card.HumanReadableID)
	}

	return map[string]string{"X-Api-Key": key}, nil
}

func (ac *AgentClient) oauthHeader(ctx context.Context, scheme a2a.AgentAuthentication) (map[string]string, error) {
	token, err := ac.bearerToken(ctx, scheme)

	if err != nil {
		return nil, err
	}

	return map[string]string{"Authorization": "Bearer " + token}, nil
}

/*
bearerToken returns a fresh access token for the scheme's token endpoint,
reusing the cached grant while it has more than the safety margin of life
left.  Concurrent callers may each fetch; the cache converges on the last
complete grant written.
*/
func (ac *AgentClient) bearerToken(ctx context.Context, scheme a2a.AgentAuthentication) (string, error) {
	if scheme.TokenURL == "" {
		return "", errors.Authenticationf(
			"oauth2 scheme for agent %q declares no token endpoint", ac.Card.HumanReadableID)
	}

	serviceID := ac.Card.ServiceID(scheme)

	if tok, ok := ac.tokens.get(serviceID); ok && tok.fresh(time.Now()) {
		return tok.token, nil
	}

	tok, err := ac.fetchToken(ctx, scheme)

	if err != nil {
		return "", err
	}

	ac.tokens.put(serviceID, tok)

	return tok.token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// fetchToken performs one client-credentials grant against the scheme's
// token endpoint.
func (ac *AgentClient) fetchToken(ctx context.Context, scheme a2a.AgentAuthentication) (cachedToken, error) {
	serviceID := ac.Card.ServiceID(scheme)
	clientID := ac.keyManager.GetOAuthClientID(serviceID)
	clientSecret := ac.keyManager.GetOAuthClientSecret(serviceID)

	if clientID == "" || clientSecret == "" {
		return cachedToken{}, errors.Authenticationf(
			"no OAuth client credentials found for service %q (agent %q)",
			serviceID, ac.Card.HumanReadableID)
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}

	if len(scheme.Scopes) > 0 {
		form.Set("scope", strings.Join(scheme.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, scheme.TokenURL, strings.NewReader(form.Encode()))

	if err != nil {
		return cachedToken{}, errors.Authenticationf(
			"failed to build token request for %s: %v", scheme.TokenURL, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Debug("requesting access token", "endpoint", scheme.TokenURL, "service", serviceID)

	resp, err := ac.httpClient.Do(req)

	if err != nil {
		return cachedToken{}, errors.Authenticationf(
			"token endpoint %s unreachable: %v", scheme.TokenURL, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return cachedToken{}, errors.Authenticationf(
			"failed to read token response from %s: %v", scheme.TokenURL, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return cachedToken{}, errors.Authenticationf(
			"token endpoint %s rejected the client credentials (HTTP %d)",
			scheme.TokenURL, resp.StatusCode)
	case resp.StatusCode >= 500:
		return cachedToken{}, errors.Authenticationf(
			"token endpoint %s failed (HTTP %d)", scheme.TokenURL, resp.StatusCode)
	default:
		return cachedToken{}, errors.Authenticationf(
			"token endpoint %s returned unexpected status HTTP %d", scheme.TokenURL, resp.StatusCode)
	}

	var grant tokenResponse

	if err := json.Unmarshal(body, &grant); err != nil {
		return cachedToken{}, errors.Authenticationf(
			"token endpoint %s returned a malformed grant: %v", scheme.TokenURL, err)
	}

	if grant.AccessToken == "" {
		return cachedToken{}, errors.Authenticationf(
			"token endpoint %s returned a grant without an access token", scheme.TokenURL)
	}

	if !strings.EqualFold(grant.TokenType, "bearer") && grant.TokenType != "" {
		log.Warn("token endpoint returned non-bearer token type, proceeding anyway",
			"endpoint", scheme.TokenURL, "tokenType", grant.TokenType)
	}

	tok := cachedToken{token: grant.AccessToken}

	if grant.ExpiresIn > 0 {
		tok.expiry = time.Now().Add(time.Duration(grant.ExpiresIn)*time.Second - tokenSafetyMargin)
	}

	return tok, nil
}
