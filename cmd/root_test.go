package cmd

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is a stand-in for testing.T.Chdir, which requires Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestInitConfigReadsConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile("config.yaml", []byte("data_dir: /var/lib/mdexport\nlog_level: debug\n"), 0o644))

	initConfig()

	assert.Equal(t, "/var/lib/mdexport", viper.GetString("data_dir"))
	assert.Equal(t, "debug", viper.GetString("log_level"))
	assert.Equal(t, 8080, viper.GetInt("redirect_port"))
}

func TestInitConfigWithoutConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	chdir(t, t.TempDir())

	initConfig()

	// Missing file is fine; defaults and env still apply.
	assert.Equal(t, 8080, viper.GetInt("redirect_port"))
}

func TestInitConfigEnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	chdir(t, t.TempDir())
	t.Setenv("MDEXPORT_REDIRECT_PORT", "9191")

	initConfig()

	assert.Equal(t, 9191, viper.GetInt("redirect_port"))
}
