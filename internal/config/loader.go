package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileEnvVar names the variable holding an optional YAML config path.
const FileEnvVar = "CALLS_CONFIG"

// envSections are the accepted variable prefixes. APP_PORT maps to app.port,
// TWILIO_ACCOUNT_SID to twilio.account_sid, and so on.
var envSections = map[string]struct{}{
	"app":    {},
	"store":  {},
	"db":     {},
	"redis":  {},
	"jwt":    {},
	"twilio": {},
	"amd":    {},
}

// Load builds a Config by layering, from low to high precedence:
//  1. Default()
//  2. the YAML file named by CALLS_CONFIG, if set
//  3. environment variables with one of the section prefixes
//
// The result is validated before it is returned.
func Load() (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, err
		}
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps SECTION_REST to section.rest and drops unrelated variables.
func envKey(s string) string {
	section, rest, ok := strings.Cut(s, "_")
	if !ok || rest == "" {
		return ""
	}
	section = strings.ToLower(section)
	if _, known := envSections[section]; !known {
		return ""
	}
	return section + "." + strings.ToLower(rest)
}
