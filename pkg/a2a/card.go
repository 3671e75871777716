package a2a

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Authentication scheme names an agent card may declare.
const (
	SchemeAPIKey = "apiKey"
	SchemeBearer = "bearer"
	SchemeOAuth2 = "oauth2"
	SchemeNone   = "none"
)

/*
AgentAuthentication describes one authentication scheme supported by an
agent's A2A endpoint.
*/
type AgentAuthentication struct {
	// Scheme is one of "apiKey", "bearer", "oauth2" or "none".
	Scheme string `json:"scheme"`
	// ServiceIdentifier is the key under which local credentials are looked
	// up. Defaults to the card's HumanReadableID when empty.
	ServiceIdentifier string `json:"service_identifier,omitempty"`
	// TokenURL is the OAuth2 token endpoint; required when Scheme is oauth2.
	TokenURL string `json:"tokenUrl,omitempty"`
	// Scopes are the OAuth2 scopes requested with the token.
	Scopes []string `json:"scopes,omitempty"`
	// Description explains how to obtain credentials for this scheme.
	Description *string `json:"description,omitempty"`
}

// AgentCapabilities defines the protocol versions an agent speaks.
type AgentCapabilities struct {
	A2AVersion            string   `json:"a2aVersion"`
	MCPVersion            *string  `json:"mcpVersion,omitempty"`
	SupportedMessageParts []string `json:"supportedMessageParts,omitempty"`
}

// AgentProvider represents the organization behind an agent.
type AgentProvider struct {
	Name           string  `json:"name"`
	URL            *string `json:"url,omitempty"`
	SupportContact *string `json:"support_contact,omitempty"`
}

/*
AgentCard is the immutable metadata descriptor of a remote agent: endpoint
URL, auth schemes and capabilities.  Cards are retrieved out-of-band and
treated as read-only inputs.
*/
type AgentCard struct {
	SchemaVersion   string                `json:"schemaVersion"`
	HumanReadableID string                `json:"humanReadableId"`
	AgentVersion    string                `json:"agentVersion"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	URL             string                `json:"url"`
	Provider        *AgentProvider        `json:"provider,omitempty"`
	Capabilities    AgentCapabilities     `json:"capabilities"`
	AuthSchemes     []AgentAuthentication `json:"authSchemes"`
	Tags            []string              `json:"tags,omitempty"`
}

/*
Validate checks the structural invariants of a card: the endpoint must be
HTTPS unless it points at localhost, at least one auth scheme must be
declared, and an oauth2 scheme must carry a token endpoint.
*/
func (card *AgentCard) Validate() error {
	if card.HumanReadableID == "" {
		return ErrMissingField("humanReadableId")
	}
	if card.URL == "" {
		return ErrMissingField("url")
	}

	parsed, err := url.Parse(card.URL)

	if err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}

	if parsed.Scheme != "https" && !isLocalhost(parsed.Hostname()) {
		return &ValidationError{Field: "url", Reason: "endpoint must use HTTPS unless the host is localhost"}
	}

	if len(card.AuthSchemes) == 0 {
		return ErrMissingField("authSchemes")
	}

	for _, scheme := range card.AuthSchemes {
		switch scheme.Scheme {
		case SchemeAPIKey, SchemeBearer, SchemeNone:
		case SchemeOAuth2:
			if scheme.TokenURL == "" {
				return &ValidationError{Field: "authSchemes", Reason: "oauth2 scheme requires tokenUrl"}
			}
		default:
			return &ValidationError{Field: "authSchemes", Reason: fmt.Sprintf("unknown scheme %q", scheme.Scheme)}
		}
	}

	return nil
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// ServiceID resolves the credential lookup key for a scheme, falling back
// to the card's human readable id.
func (card *AgentCard) ServiceID(scheme AgentAuthentication) string {
	if scheme.ServiceIdentifier != "" {
		return scheme.ServiceIdentifier
	}
	return card.HumanReadableID
}

// NewAgentCardFromConfig builds a card from viper configuration, mirroring
// the layout used by the serve command's config file.
func NewAgentCardFromConfig(key string) *AgentCard {
	v := viper.GetViper()

	schemes := []AgentAuthentication{}

	for _, name := range v.GetStringSlice(fmt.Sprintf("agent.%s.auth_schemes", key)) {
		schemes = append(schemes, AgentAuthentication{
			Scheme:            name,
			ServiceIdentifier: v.GetString(fmt.Sprintf("agent.%s.service_identifier", key)),
			TokenURL:          v.GetString(fmt.Sprintf("agent.%s.token_url", key)),
		})
	}

	if len(schemes) == 0 {
		schemes = append(schemes, AgentAuthentication{Scheme: SchemeNone})
	}

	return &AgentCard{
		SchemaVersion:   v.GetString(fmt.Sprintf("agent.%s.schema_version", key)),
		HumanReadableID: v.GetString(fmt.Sprintf("agent.%s.id", key)),
		AgentVersion:    v.GetString(fmt.Sprintf("agent.%s.version", key)),
		Name:            v.GetString(fmt.Sprintf("agent.%s.name", key)),
		Description:     v.GetString(fmt.Sprintf("agent.%s.description", key)),
		URL:             v.GetString(fmt.Sprintf("agent.%s.url", key)),
		Capabilities: AgentCapabilities{
			A2AVersion: v.GetString(fmt.Sprintf("agent.%s.a2a_version", key)),
		},
		AuthSchemes: schemes,
	}
}

func (card *AgentCard) String() string {
	var sb strings.Builder

	sb.WriteString(card.HumanReadableID)
	sb.WriteString(" (")
	sb.WriteString(card.Name)
	sb.WriteString(" v")
	sb.WriteString(card.AgentVersion)
	sb.WriteString(") @ ")
	sb.WriteString(card.URL)

	return sb.String()
}
