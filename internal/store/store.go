// Package store locates and loads adapter profile documents from standard
// locations. Profiles are external input; the engine never writes one back.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/profile"
)

// ProfileStore resolves profile documents by name or path.
type ProfileStore struct {
	logger logging.Logger
}

// NewProfileStore creates a profile store.
func NewProfileStore(logger logging.Logger) *ProfileStore {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &ProfileStore{logger: logger}
}

// FindProfile looks for a profile file in standard locations: the path as
// given, ./profiles/, and ~/.config/ledger-adapt/profiles/.
func (s *ProfileStore) FindProfile(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		name,
		filepath.Join("profiles", name),
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(homeDir, ".config", "ledger-adapt", "profiles", name))
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}
	return "", os.ErrNotExist
}

// LoadProfile resolves and decodes a profile document (JSON or YAML by
// extension; JSON when the extension is unknown). The returned profile has
// defaults applied but has not been validated.
func (s *ProfileStore) LoadProfile(name string) (*profile.AdapterProfile, error) {
	path, err := s.FindProfile(name)
	if err != nil {
		return nil, fmt.Errorf("profile not found: %s", name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening profile %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close profile file")
		}
	}()

	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}

	p, err := profile.Decode(f, format)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(
		logging.Field{Key: "path", Value: path},
		logging.Field{Key: "mode", Value: p.ParsingStrategy.Mode},
		logging.Field{Key: "version", Value: p.ProfileVersion},
	).Debug("Loaded adapter profile")
	return p, nil
}
