package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lbatal/storefront-assistant-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv_MissingFile(t *testing.T) {
	err := config.LoadDotEnv(filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoadDotEnv_KeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# local\nSTOREFRONT_TEST_MODEL=from-file\nSTOREFRONT_TEST_PORT=\"9999\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("STOREFRONT_TEST_MODEL", "from-env")
	t.Setenv("STOREFRONT_TEST_PORT", "")
	os.Unsetenv("STOREFRONT_TEST_PORT")

	require.NoError(t, config.LoadDotEnv(path))

	assert.Equal(t, "from-env", os.Getenv("STOREFRONT_TEST_MODEL"))
	assert.Equal(t, "9999", os.Getenv("STOREFRONT_TEST_PORT"))
}
