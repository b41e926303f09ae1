package config

import (
	"os"
	"strings"
	"time"
)

// ElasticsearchConfig points at the cluster holding the event search index.
// Search falls back to in-process filtering when it is disabled or down.
type ElasticsearchConfig struct {
	Enabled    bool
	Addresses  []string
	Index      string
	Username   string
	Password   string
	MaxRetries int
	Timeout    time.Duration
}

// LoadElasticsearchConfig reads ELASTICSEARCH_* variables. ELASTICSEARCH_URLS
// takes a comma separated node list and wins over ELASTICSEARCH_URL.
func LoadElasticsearchConfig() ElasticsearchConfig {
	addresses := splitList(os.Getenv("ELASTICSEARCH_URLS"))
	if len(addresses) == 0 {
		addresses = []string{getEnv("ELASTICSEARCH_URL", "http://localhost:9200")}
	}

	return ElasticsearchConfig{
		Enabled:    getEnv("ELASTICSEARCH_ENABLED", "true") == "true",
		Addresses:  addresses,
		Index:      getEnv("ELASTICSEARCH_INDEX", "pierre-events"),
		Username:   os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:   os.Getenv("ELASTICSEARCH_PASSWORD"),
		MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		Timeout:    getEnvDuration("ELASTICSEARCH_TIMEOUT", 10*time.Second),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
