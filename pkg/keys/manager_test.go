package keys

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}

	return path
}

func TestManagerEnvLayer(t *testing.T) {
	t.Setenv("AGENTVAULT_KEY_WEATHER", "env-secret")

	manager := NewManager()

	assert.Equal(t, "env-secret", manager.GetKey("weather"))
	assert.Equal(t, SourceEnv, manager.GetKeySource("weather"))

	// Lookup is case-insensitive on the service id.
	assert.Equal(t, "env-secret", manager.GetKey("WEATHER"))
	assert.Equal(t, "env-secret", manager.GetKey("Weather"))
}

func TestManagerFileBeatsEnv(t *testing.T) {
	t.Setenv("AGENTVAULT_KEY_WEATHER", "env-secret")

	path := writeTempFile(t, "keys.env", "weather=file-secret\n")
	manager := NewManager(WithKeyFile(path))

	assert.Equal(t, "file-secret", manager.GetKey("weather"))
	assert.Equal(t, SourceFile, manager.GetKeySource("weather"))
}

func TestManagerKeyFileFormats(t *testing.T) {
	Convey("Given credential files on disk", t, func() {
		Convey("A .env file loads plain keys and OAuth entries", func() {
			path := writeTempFile(t, "keys.env",
				"weather=wkey\n"+
					"billing_oauth_client_id=cid\n"+
					"billing_oauth_client_secret=csec\n")

			manager := NewManager(WithKeyFile(path), WithoutEnvVars())

			So(manager.GetKey("weather"), ShouldEqual, "wkey")
			So(manager.GetOAuthClientID("billing"), ShouldEqual, "cid")
			So(manager.GetOAuthClientSecret("billing"), ShouldEqual, "csec")

			// The OAuth suffixes never leak into the plain key map.
			So(manager.GetKey("billing_oauth_client_id"), ShouldBeEmpty)
		})

		Convey("A .json file loads string values and skips the rest", func() {
			path := writeTempFile(t, "keys.json",
				`{"weather": "wkey", "broken": 42, "Upper": "ukey"}`)

			manager := NewManager(WithKeyFile(path), WithoutEnvVars())

			So(manager.GetKey("weather"), ShouldEqual, "wkey")
			So(manager.GetKey("broken"), ShouldBeEmpty)
			So(manager.GetKey("upper"), ShouldEqual, "ukey")
		})

		Convey("An unsupported extension loads nothing", func() {
			path := writeTempFile(t, "keys.yaml", "weather: wkey\n")

			manager := NewManager(WithKeyFile(path), WithoutEnvVars())

			So(manager.GetKey("weather"), ShouldBeEmpty)
		})

		Convey("Empty values are skipped rather than stored", func() {
			path := writeTempFile(t, "keys.env", "weather=\n")

			manager := NewManager(WithKeyFile(path), WithoutEnvVars())

			So(manager.GetKey("weather"), ShouldBeEmpty)
			So(manager.GetKeySource("weather"), ShouldBeEmpty)
		})

		Convey("A missing file leaves the manager usable", func() {
			manager := NewManager(WithKeyFile("/does/not/exist.env"), WithoutEnvVars())

			So(manager.GetKey("weather"), ShouldBeEmpty)
		})
	})
}

func TestManagerOAuthEnvLayer(t *testing.T) {
	t.Setenv("AGENTVAULT_OAUTH_CLIENT_ID_BILLING", "env-cid")
	t.Setenv("AGENTVAULT_OAUTH_CLIENT_SECRET_BILLING", "env-csec")

	manager := NewManager()

	assert.Equal(t, "env-cid", manager.GetOAuthClientID("billing"))
	assert.Equal(t, "env-csec", manager.GetOAuthClientSecret("billing"))
}

func TestManagerStickySource(t *testing.T) {
	path := writeTempFile(t, "keys.env", "weather=file-secret\n")

	t.Setenv("AGENTVAULT_KEY_WEATHER", "env-secret")

	manager := NewManager(WithKeyFile(path))

	// Repeated lookups keep resolving from the same source.
	for i := 0; i < 3; i++ {
		assert.Equal(t, "file-secret", manager.GetKey("weather"))
		assert.Equal(t, SourceFile, manager.GetKeySource("weather"))
	}
}

func TestManagerCustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_KEY_WEATHER", "custom-secret")
	t.Setenv("AGENTVAULT_KEY_WEATHER", "default-secret")

	manager := NewManager(WithEnvPrefix("MYAPP_KEY_"))

	assert.Equal(t, "custom-secret", manager.GetKey("weather"))
}

func TestManagerKeyringWritesRequireKeyring(t *testing.T) {
	manager := NewManager(WithoutEnvVars())

	err := manager.SetKeyInKeyring("weather", "secret")
	assert.Error(t, err, "writes must fail when the keyring layer is disabled")
}
