package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const settingsDirName = ".yapytr"

// Settings locates the per-user settings directory and the well-known
// files inside it.
type Settings struct {
	Dir string
}

// NewSettings resolves the settings directory under the user's home.
// The directory itself is created lazily by the writers.
func NewSettings() (*Settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return &Settings{Dir: filepath.Join(home, settingsDirName)}, nil
}

// CredentialsPath returns the path of the phone number / PIN file.
func (s *Settings) CredentialsPath() string {
	return filepath.Join(s.Dir, "credentials")
}

// SessionPath returns the path of the persisted session token file.
func (s *Settings) SessionPath() string {
	return filepath.Join(s.Dir, "session")
}

// ConfigPath returns the path of the optional JSON config file.
func (s *Settings) ConfigPath() string {
	return filepath.Join(s.Dir, "config.json")
}

// Clean deletes the credentials file, the session file and, when it is
// empty afterwards, the settings directory itself.
func (s *Settings) Clean(logger *slog.Logger) error {
	for _, path := range []string{s.CredentialsPath(), s.SessionPath()} {
		if _, err := os.Stat(path); err != nil {
			logger.Info("file not found, nothing to do", "path", path)
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
		logger.Info("deleted file", "path", path)
	}

	if _, err := os.Stat(s.Dir); err != nil {
		logger.Info("no settings directory found, nothing to do")
		return nil
	}
	if err := os.Remove(s.Dir); err != nil {
		// Not empty, e.g. a config file the user wrote by hand.
		logger.Info("settings directory not removed", "dir", s.Dir, "reason", err)
		return nil
	}
	logger.Info("deleted settings directory", "dir", s.Dir)
	return nil
}
