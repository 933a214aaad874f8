// Package credential stores the Steam account used for settings generation.
//
// Credentials are kept in clear text in a small TOML file. This mirrors what
// the generator itself needs and is a known limitation.
package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/adamancini/shimsync/internal/errors"
	"github.com/adamancini/shimsync/internal/logging"
)

// Credentials is a Steam account name and password.
type Credentials struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Complete reports whether both fields are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

type file struct {
	Creds Credentials `toml:"creds"`
}

// Prompter asks the user for credentials.
type Prompter interface {
	PromptCredentials(ctx context.Context) (Credentials, error)
}

// Store loads credentials from a file, capturing and saving them on first use.
type Store struct {
	path     string
	prompter Prompter
}

// NewStore returns a store backed by path. prompter may be nil, in which
// case missing credentials are an error.
func NewStore(path string, prompter Prompter) *Store {
	return &Store{path: path, prompter: prompter}
}

// Path returns the credentials file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads stored credentials. The boolean is false when the file is
// missing or incomplete.
func (s *Store) Load() (Credentials, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, errors.Wrapf(err, errors.KindIO, "failed to read %s", s.path)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return Credentials{}, false, errors.Wrapf(err, errors.KindConfig, "failed to parse %s", s.path)
	}
	return f.Creds, f.Creds.Complete(), nil
}

// Save writes creds, readable only by the current user.
func (s *Store) Save(creds Credentials) error {
	data, err := toml.Marshal(file{Creds: creds})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to create credentials directory")
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return errors.Wrap(err, errors.KindIO, "failed to write credentials")
	}
	return nil
}

// Credentials returns stored credentials, prompting for and saving them
// when none are stored yet.
func (s *Store) Credentials(ctx context.Context) (Credentials, error) {
	creds, ok, err := s.Load()
	if err != nil {
		return Credentials{}, err
	}
	if ok {
		return creds, nil
	}

	if s.prompter == nil {
		return Credentials{}, errors.Newf(errors.KindConfig, "no credentials stored in %s", s.path)
	}

	logger := logging.GetLogger("credential")
	logger.Info().Str("path", s.path).Msg("No stored credentials, asking for them")

	creds, err = s.prompter.PromptCredentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if !creds.Complete() {
		return Credentials{}, errors.New(errors.KindConfig, "username and password are required")
	}

	if err := s.Save(creds); err != nil {
		return Credentials{}, err
	}
	logger.Info().Str("path", s.path).Msg("Saved credentials")
	return creds, nil
}
