package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/intent-gate/internal/policy"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"BIND", "STORE", "REPLAY_BACKEND", "TOKEN_TTL_S", "MAX_TTL_H", "ISSUE_RATE_PER_S", "LOG_LEVEL", "ENABLE_SWAGGER", "ISSUER_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, ":8081", cfg.Bind)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, ReplayStore, cfg.ReplayBackend)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.MaxTTL)
	assert.Equal(t, 10*time.Second, cfg.IssuerTimeout)
	assert.Equal(t, 5.0, cfg.IssueRate)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.EnableSwagger)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE", "SQLite")
	t.Setenv("REPLAY_BACKEND", "carrier-pigeon")
	t.Setenv("TOKEN_TTL_S", "90")
	t.Setenv("MAX_TTL_H", "nope")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENABLE_SWAGGER", "true")
	t.Setenv("ISSUER_URL", " http://issuer:8081 ")
	t.Setenv("ISSUER_TIMEOUT", "250ms")

	cfg := Load()
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, ReplayStore, cfg.ReplayBackend)
	assert.Equal(t, 90*time.Second, cfg.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.MaxTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.EnableSwagger)
	assert.Equal(t, "http://issuer:8081", cfg.IssuerURL)
	assert.Equal(t, 250*time.Millisecond, cfg.IssuerTimeout)
}

func TestLogValueHidesSecret(t *testing.T) {
	cfg := Config{Secret: "super-secret-value-that-must-not-leak", Bind: ":1"}
	v := cfg.LogValue()
	assert.NotContains(t, v.String(), cfg.Secret)
	assert.Contains(t, v.String(), "secret_set")
}

func TestParsePolicy(t *testing.T) {
	l, err := ParsePolicy([]byte(`
rule_set_version: 2.1.0
currency: INR
max_transaction_amount: 100000
action_ceilings:
  Book_Flight: 75000
rules:
  - name: domestic-only
    expr: 'params.destination != "MARS"'
    actions: [book_flight]
`))
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", l.RuleSetVersion)
	assert.Equal(t, 100000.0, l.MaxTransactionAmount)
	assert.Equal(t, 75000.0, l.ActionCeilings["book_flight"])
	require.Len(t, l.Rules, 1)
	assert.Equal(t, policy.DefaultAmountField, l.AmountField)

	_, err = policy.New(l)
	require.NoError(t, err)
}

func TestParsePolicyRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "max_amount: 5\n",
		"bad semver":     "rule_set_version: banana\n",
		"negative cap":   "max_transaction_amount: -1\n",
		"not yaml":       "[unterminated\n",
		"rule sans expr": "rules:\n  - name: x\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(doc))
			require.ErrorIs(t, err, policy.ErrInvalidLimits)
		})
	}
}

func TestLoadPolicyFile(t *testing.T) {
	l, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, policy.DefaultLimits().MaxTransactionAmount, l.MaxTransactionAmount)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_transaction_amount: 1234\n"), 0o600))
	l, err = LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, 1234.0, l.MaxTransactionAmount)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
