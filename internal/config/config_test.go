package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadForTestsAppliesDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/kasir",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",

		// Unset anything the ambient environment might carry.
		"APP_ENV":          "",
		"PORT":             "",
		"OPERATOR_NAME":    "",
		"SCAN_COOLDOWN":    "",
		"BILL_SESSION_TTL": "",
		"SCAN_SYMBOLOGIES": "",
		"SCAN_RATE_MAX":    "",
	})
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "kasir", cfg.OperatorName)
	require.Equal(t, 1500*time.Millisecond, cfg.ScanCooldown)
	require.Equal(t, 4*time.Hour, cfg.BillSessionTTL)
	require.Equal(t, []string{"ean", "code128", "upc"}, cfg.Symbologies)
	require.Equal(t, 20, cfg.ScanRateMax)
}

func TestLoadForTestsAppliesOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":     "postgres://localhost:5432/kasir",
		"REDIS_URL":        "redis://localhost:6379/0",
		"JWT_SECRET":       "test-secret",
		"PORT":             "9090",
		"SCAN_COOLDOWN":    "500ms",
		"SCAN_SYMBOLOGIES": "ean, qr",
		"SCAN_RATE_MAX":    "5",
	})
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 500*time.Millisecond, cfg.ScanCooldown)
	require.Equal(t, []string{"ean", "qr"}, cfg.Symbologies)
	require.Equal(t, 5, cfg.ScanRateMax)
}

func TestLoadForTestsRequiredKeys(t *testing.T) {
	cases := []string{"DATABASE_URL", "REDIS_URL", "JWT_SECRET"}
	for _, missing := range cases {
		env := map[string]string{
			"DATABASE_URL": "postgres://localhost:5432/kasir",
			"REDIS_URL":    "redis://localhost:6379/0",
			"JWT_SECRET":   "test-secret",
		}
		env[missing] = ""
		if _, err := LoadForTests(env); err == nil {
			t.Fatalf("expected error when %s is unset", missing)
		}
	}
}

func TestLoadForTestsRestoresEnvironment(t *testing.T) {
	const key = "SCAN_COOLDOWN"
	t.Setenv(key, "900ms")

	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/kasir",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
		key:            "250ms",
	})
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, cfg.ScanCooldown)
	require.Equal(t, "900ms", os.Getenv(key))
}
