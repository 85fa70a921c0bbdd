package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ENVIRONMENT", "test")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.Cron.Interval)
	assert.Equal(t, 165*time.Second, cfg.Userdata.RefreshInterval)
	assert.Equal(t, 4*time.Second, cfg.Userdata.RequestTimeout)
	assert.Empty(t, cfg.Deletion)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENVIRONMENT", "test")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestParseDeletionTuples(t *testing.T) {
	out, err := parseDeletionTuples("(letters,30,60),(invoices,7,83)")

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, DeletionConfig{Collection: "letters", Stage1Days: 30, Stage2Days: 60}, out[0])
	assert.Equal(t, DeletionConfig{Collection: "invoices", Stage1Days: 7, Stage2Days: 83}, out[1])
}

func TestParseDeletionTuplesEmpty(t *testing.T) {
	out, err := parseDeletionTuples("")

	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestParseDeletionTuplesRejectsMalformedInput(t *testing.T) {
	for _, value := range []string{
		"letters,30,60",
		"(letters,30)",
		"(Letters,30,60)",
		"(letters,thirty,60)",
	} {
		_, err := parseDeletionTuples(value)
		assert.Error(t, err, "value %q", value)
	}
}
