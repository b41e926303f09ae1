package config

import (
	"testing"
	"time"

	"pierre/internal/eventdate"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOCALE", "")
	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, eventdate.LocaleIT, cfg.Locale)
	assert.Equal(t, "EUR", cfg.Payment.Currency)
	assert.Equal(t, "@every 15m", cfg.Expiry.Schedule)
	assert.Equal(t, 2*time.Minute, cfg.Settlement.Grace)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOCALE", "en")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("JWT_TTL_MIN", "5")
	t.Setenv("PIERRE_API_URL", "https://api.example.com")
	t.Setenv("ELASTICSEARCH_TIMEOUT", "2s")
	t.Setenv("SETTLEMENT_GRACE", "90s")
	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, eventdate.LocaleEN, cfg.Locale)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Elasticsearch.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Settlement.Grace)
}

func TestElasticsearchAddresses(t *testing.T) {
	t.Setenv("ELASTICSEARCH_URLS", "")
	t.Setenv("ELASTICSEARCH_URL", "http://es:9200")
	assert.Equal(t, []string{"http://es:9200"}, LoadElasticsearchConfig().Addresses)

	t.Setenv("ELASTICSEARCH_URLS", "http://es1:9200, http://es2:9200,")
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, LoadElasticsearchConfig().Addresses)
}

func TestGetEnvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))
}
