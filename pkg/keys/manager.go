package keys

// Manager resolves per-service API keys and OAuth client credentials from
// layered sources.  Priority order, highest to lowest:
//
//  1. Key file (.env or .json)
//  2. Environment variables
//  3. OS keyring (if enabled, queried on demand by GetKey)
//
// Once a key is resolved for a service id the bound source is sticky for
// the lifetime of the Manager.

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	averrors "github.com/agentvault/agentvault-go/pkg/errors"
)

// Source identifies where a credential was loaded from.
type Source string

const (
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
)

// Default environment variable prefixes. The service id part is uppercased
// in the environment and case-folded on ingest.
const (
	DefaultEnvPrefix     = "AGENTVAULT_KEY_"
	OAuthClientIDPrefix  = "AGENTVAULT_OAUTH_CLIENT_ID_"
	OAuthClientSecPrefix = "AGENTVAULT_OAUTH_CLIENT_SECRET_"
)

// Key-file suffixes that route entries to the OAuth credential maps
// instead of the plain key map.
const (
	oauthClientIDSuffix  = "_oauth_client_id"
	oauthClientSecSuffix = "_oauth_client_secret"
)

const keyringServicePrefix = "agentvault:"

type entry struct {
	secret string
	source Source
}

/*
Manager loads and serves credentials.  It is read-mostly after
construction; keyring access is serialised behind the mutex.
*/
type Manager struct {
	keyFilePath string
	useEnvVars  bool
	useKeyring  bool
	envPrefix   string

	mu           sync.Mutex
	keys         map[string]entry
	oauthIDs     map[string]entry
	oauthSecrets map[string]entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithKeyFile points the manager at a .env- or .json-formatted key file,
// loaded once at construction.
func WithKeyFile(path string) Option {
	return func(m *Manager) { m.keyFilePath = path }
}

// WithoutEnvVars disables the environment variable layer.
func WithoutEnvVars() Option {
	return func(m *Manager) { m.useEnvVars = false }
}

// WithKeyring enables on-demand lookups in the OS credential store.  If
// the store is unavailable the option silently downgrades.
func WithKeyring() Option {
	return func(m *Manager) { m.useKeyring = true }
}

// WithEnvPrefix overrides the default AGENTVAULT_KEY_ prefix.
func WithEnvPrefix(prefix string) Option {
	return func(m *Manager) { m.envPrefix = prefix }
}

// NewManager builds a Manager and eagerly loads the file and environment
// layers. Load failures are logged and non-fatal; a partially loaded
// manager is still usable.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		useEnvVars:   true,
		envPrefix:    DefaultEnvPrefix,
		keys:         make(map[string]entry),
		oauthIDs:     make(map[string]entry),
		oauthSecrets: make(map[string]entry),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.useKeyring && !keyringAvailable() {
		log.Warn("OS keyring requested but unavailable, disabling keyring layer")
		m.useKeyring = false
	}

	if m.keyFilePath != "" {
		m.loadFromFile()
	}

	if m.useEnvVars {
		m.loadFromEnv()
	}

	return m
}

func keyringAvailable() bool {
	_, err := keyring.Get(keyringServicePrefix+"availability-probe", "probe")

	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

func (m *Manager) loadFromFile() {
	values, err := m.readKeyFile()

	if err != nil {
		log.Error("failed to load key file", "path", m.keyFilePath, "error", err)
		return
	}

	for key, value := range values {
		normalized := strings.ToLower(key)

		if value == "" {
			log.Warn("skipping empty value in key file", "key", key, "path", m.keyFilePath)
			continue
		}

		switch {
		case strings.HasSuffix(normalized, oauthClientIDSuffix):
			service := strings.TrimSuffix(normalized, oauthClientIDSuffix)
			m.oauthIDs[service] = entry{secret: value, source: SourceFile}
		case strings.HasSuffix(normalized, oauthClientSecSuffix):
			service := strings.TrimSuffix(normalized, oauthClientSecSuffix)
			m.oauthSecrets[service] = entry{secret: value, source: SourceFile}
		default:
			m.keys[normalized] = entry{secret: value, source: SourceFile}
		}
	}
}

func (m *Manager) readKeyFile() (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(m.keyFilePath)) {
	case ".env":
		return godotenv.Read(m.keyFilePath)
	case ".json":
		return m.readJSONKeyFile()
	default:
		log.Warn("unsupported key file extension, only .env and .json are supported",
			"path", m.keyFilePath)
		return nil, nil
	}
}

func (m *Manager) readJSONKeyFile() (map[string]string, error) {
	raw, err := os.ReadFile(m.keyFilePath)

	if err != nil {
		return nil, err
	}

	var data map[string]any

	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(data))

	for key, value := range data {
		str, ok := value.(string)

		if !ok {
			log.Warn("skipping non-string value in JSON key file", "key", key, "path", m.keyFilePath)
			continue
		}

		values[key] = str
	}

	return values, nil
}

func (m *Manager) loadFromEnv() {
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")

		if !ok {
			continue
		}

		switch {
		case strings.HasPrefix(name, m.envPrefix):
			m.storeEnv(m.keys, strings.TrimPrefix(name, m.envPrefix), name, value)
		case strings.HasPrefix(name, OAuthClientIDPrefix):
			m.storeEnv(m.oauthIDs, strings.TrimPrefix(name, OAuthClientIDPrefix), name, value)
		case strings.HasPrefix(name, OAuthClientSecPrefix):
			m.storeEnv(m.oauthSecrets, strings.TrimPrefix(name, OAuthClientSecPrefix), name, value)
		}
	}
}

func (m *Manager) storeEnv(dst map[string]entry, servicepart, name, value string) {
	if servicepart == "" {
		log.Warn("skipping environment variable with empty service id part", "variable", name)
		return
	}

	normalized := strings.ToLower(servicepart)

	// File-sourced entries win; the source binding is sticky.
	if _, exists := dst[normalized]; exists {
		return
	}

	if value == "" {
		log.Warn("skipping environment variable with empty value", "variable", name)
		return
	}

	dst[normalized] = entry{secret: value, source: SourceEnv}
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

/*
GetKey retrieves the key for a service id (case-insensitive).  File- and
env-loaded caches are consulted first; if the keyring layer is enabled a
miss falls through to an on-demand keyring query whose result is memoised.
Returns an empty string when the key is not found anywhere.
*/
func (m *Manager) GetKey(serviceID string) string {
	normalized := strings.ToLower(serviceID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.keys[normalized]; ok {
		return e.secret
	}

	if m.useKeyring {
		secret, err := keyring.Get(keyringServicePrefix+normalized, normalized)

		if err == nil && secret != "" {
			m.keys[normalized] = entry{secret: secret, source: SourceKeyring}
			return secret
		}

		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			log.Warn("keyring lookup failed", "service", normalized, "error", err)
		}
	}

	return ""
}

/*
GetKeySource returns the source a service's key was resolved from, or an
empty Source if the key has never been resolved.
*/
func (m *Manager) GetKeySource(serviceID string) Source {
	normalized := strings.ToLower(serviceID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.keys[normalized]; ok {
		return e.source
	}

	return ""
}

// GetOAuthClientID retrieves the OAuth client id for a service, resolved
// independently from the plain key over the same layered sources.
func (m *Manager) GetOAuthClientID(serviceID string) string {
	return m.getOAuth(m.oauthIDs, serviceID, "client_id")
}

// GetOAuthClientSecret retrieves the OAuth client secret for a service.
func (m *Manager) GetOAuthClientSecret(serviceID string) string {
	return m.getOAuth(m.oauthSecrets, serviceID, "client_secret")
}

func (m *Manager) getOAuth(cache map[string]entry, serviceID, user string) string {
	normalized := strings.ToLower(serviceID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := cache[normalized]; ok {
		return e.secret
	}

	if m.useKeyring {
		secret, err := keyring.Get(keyringServicePrefix+normalized+":oauth", user)

		if err == nil && secret != "" {
			cache[normalized] = entry{secret: secret, source: SourceKeyring}
			return secret
		}

		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			log.Warn("keyring lookup failed", "service", normalized, "user", user, "error", err)
		}
	}

	return ""
}

/*
SetKeyInKeyring stores or replaces a key in the OS credential store.
Unlike reads, write failures surface to the caller as credential errors.
*/
func (m *Manager) SetKeyInKeyring(serviceID, secret string) error {
	if !m.useKeyring {
		return averrors.Credentialf("keyring support is not enabled for this manager")
	}

	normalized := strings.ToLower(serviceID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := keyring.Set(keyringServicePrefix+normalized, normalized, secret); err != nil {
		return averrors.Credentialf("failed to set key for service %q: %v", normalized, err)
	}

	return nil
}
