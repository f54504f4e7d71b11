package bonsai

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bacalhau-project/callback-relay/pkg/relayerrors"
)

// Config locates the proving service and authenticates against it.
type Config struct {
	URL    string
	APIKey string
}

// ParseEndpoint parses the legacy single value form "<url>|<api key>".
func ParseEndpoint(endpoint string) (Config, error) {
	u, key, found := strings.Cut(endpoint, "|")
	if !found {
		return Config{}, relayerrors.New(relayerrors.InvalidBackendConfig,
			"proving endpoint must have the form <url>|<api key>").
			WithHint("set BONSAI_API_URL and BONSAI_API_KEY instead")
	}
	cfg := Config{URL: strings.TrimSpace(u), APIKey: strings.TrimSpace(key)}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.URL == "" {
		return relayerrors.New(relayerrors.InvalidBackendConfig, "proving service url is not set").
			WithHint("set BONSAI_API_URL")
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return relayerrors.New(relayerrors.InvalidBackendConfig, "invalid proving service url %q", c.URL)
	}
	if c.APIKey == "" {
		return relayerrors.New(relayerrors.InvalidBackendConfig, "proving service api key is not set").
			WithHint("set BONSAI_API_KEY")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s (key %s)", c.URL, redact(c.APIKey))
}

func redact(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}
