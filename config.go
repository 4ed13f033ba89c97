package storefront

import (
	"time"

	"github.com/dpup/storefront/internal/config"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Filename of the standard configuration file.
const ConfigFile = "storefront.yaml"

// ConfigKeyInfo contains metadata about a known configuration key.
// This is re-exported from internal/config for public API use.
type ConfigKeyInfo = config.ConfigKeyInfo

// Config is a global koanf instance used to access application level
// configuration options.
//
// Config is loaded in the following order (later sources override earlier):
// 1. Built-in defaults (in init())
// 2. Auto-discovered storefront.yaml (in init())
// 3. Environment variables with SF__ prefix (in init())
// 4. Additional sources loaded via LoadConfigFile() or LoadConfigDefaults()
//
// Environment variable transformation:
//   - SF__EMAIL__FROM → email.from
//   - SF__SHOP__RECEIPT_TOPIC → shop.receiptTopic (underscores become camelCase)
var Config = koanf.New(".")

func init() {
	registerCoreConfigKeys()

	// Look for a storefront.yaml file in the current directory or any parent.
	if cfg := config.SearchForConfig(ConfigFile, "."); cfg != "" {
		if err := Config.Load(file.Provider(cfg), yaml.Parser()); err != nil {
			panic("error loading config: " + err.Error())
		}
	}

	// Load environment variables with the prefix SF__.
	if err := Config.Load(env.Provider("SF__", ".", config.TransformEnv), nil); err != nil {
		panic("error loading env config: " + err.Error())
	}
}

// RegisterConfigKey registers a known configuration key with metadata.
// This should be called by core code and plugins to document expected config
// keys.
//
// Example:
//
//	storefront.RegisterConfigKey(storefront.ConfigKeyInfo{
//	    Key:         "auth.signingKey",
//	    Description: "JWT signing key for subject tokens",
//	    Type:        "string",
//	})
func RegisterConfigKey(info ConfigKeyInfo) {
	config.RegisterConfigKey(info)
}

// RegisterConfigKeys registers multiple configuration keys at once.
func RegisterConfigKeys(infos ...ConfigKeyInfo) {
	config.RegisterConfigKeys(infos...)
}

// LoadConfigFile loads additional configuration from a YAML file into the
// global Config instance. Call this during process setup, before plugins are
// constructed.
//
// Example:
//
//	storefront.LoadConfigFile("./app.yaml")
//	value := storefront.ConfigString("myapp.setting")
func LoadConfigFile(path string) {
	if err := Config.Load(file.Provider(path), yaml.Parser()); err != nil {
		panic("error loading config file '" + path + "': " + err.Error())
	}
}

// LoadConfigDefaults loads default configuration values into the global
// Config instance. Call this during process setup to provide application
// specific defaults that can be overridden by files or env vars.
//
// Example:
//
//	storefront.LoadConfigDefaults(map[string]interface{}{
//	    "shop.currency": "usd",
//	})
func LoadConfigDefaults(defaults map[string]interface{}) {
	if err := Config.Load(confmap.Provider(defaults, "."), nil); err != nil {
		panic("error loading config defaults: " + err.Error())
	}
}

// Configuration Access Functions
//
// These functions provide a clean API for accessing configuration values.
// They delegate to the underlying Config instance.

// ConfigString returns the string value for the given key.
func ConfigString(key string) string {
	return Config.String(key)
}

// ConfigInt returns the int value for the given key.
func ConfigInt(key string) int {
	return Config.Int(key)
}

// ConfigBool returns the bool value for the given key.
func ConfigBool(key string) bool {
	return Config.Bool(key)
}

// ConfigDuration returns the duration value for the given key.
// Duration strings like "5m", "1h", "30s" are parsed automatically.
func ConfigDuration(key string) time.Duration {
	return Config.Duration(key)
}

// ConfigStrings returns the string slice value for the given key.
func ConfigStrings(key string) []string {
	return Config.Strings(key)
}

// ConfigStringMap returns the string map value for the given key.
func ConfigStringMap(key string) map[string]string {
	return Config.StringMap(key)
}

// ConfigExists checks if the given key exists in the configuration.
func ConfigExists(key string) bool {
	return Config.Exists(key)
}

// registerCoreConfigKeys registers the core storefront configuration keys
// with their defaults. Called from init() before any config loading happens.
func registerCoreConfigKeys() {
	config.RegisterConfigKeys(
		ConfigKeyInfo{
			Key:         "name",
			Description: "User-facing name that identifies the store",
			Type:        "string",
			Default:     "Storefront",
		},
		ConfigKeyInfo{
			Key:         "auth.signingKey",
			Description: "HMAC key used to sign subject tokens",
			Type:        "string",
		},
		ConfigKeyInfo{
			Key:         "auth.tokenExpiration",
			Description: "Lifetime of issued subject tokens",
			Type:        "duration",
			Default:     "720h",
		},
		ConfigKeyInfo{
			Key:         "routes.guards",
			Description: "Static route guard table, keyed by path",
			Type:        "map",
		},
		ConfigKeyInfo{
			Key:         "shop.currency",
			Description: "ISO currency code used for order totals",
			Type:        "string",
			Default:     "usd",
		},
	)
}
