package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := Default()
	require.Equal(t, &def, cfg)
	require.True(t, cfg.Browser.Headless)
	require.False(t, cfg.Spreads)
	require.Equal(t, "./downloads", cfg.Storage.DownloadDir)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
spreads: true
browser:
  headless: false
  user_data_dir: /tmp/profile
capture:
  manifest_timeout: 10s
  gesture:
    region_max: 300
storage:
  download_dir: /srv/galleries
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.True(t, cfg.Spreads)
	require.False(t, cfg.Browser.Headless)
	require.Equal(t, "/tmp/profile", cfg.Browser.UserDataDir)
	require.Equal(t, 10*time.Second, cfg.Capture.ManifestTimeout)
	require.Equal(t, 300, cfg.Capture.Gesture.RegionMax)
	require.Equal(t, "/srv/galleries", cfg.Storage.DownloadDir)

	// untouched keys keep their defaults
	require.Equal(t, 10, cfg.Capture.Gesture.RegionMin)
	require.Equal(t, "done.txt", cfg.Storage.LedgerPath)
	require.Equal(t, "*/read", cfg.Capture.ManifestPattern)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"unknown gate", "session:\n  login_gate: webhook\n"},
		{"inverted region", "capture:\n  gesture:\n    region_min: 500\n    region_max: 400\n"},
		{"inverted hold", "capture:\n  gesture:\n    hold_min: 1s\n    hold_max: 10ms\n"},
		{"bad base url", "site:\n  base_url: not a url\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.ErrorContains(t, err, "validating config")
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "console", cfg.Session.LoginGate)
}
