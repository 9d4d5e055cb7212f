// Package credentials stores per-host login credentials for the rfs CLI.
//
// Credentials saved with "rfs login" are injected into URLs that do not
// carry a user of their own. The file is written with owner-only
// permissions; passwords are stored as given.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marmos91/remotefs/pkg/smburl"
)

const (
	// DefaultConfigDir is the directory under $XDG_CONFIG_HOME.
	DefaultConfigDir = "remotefs"
	// ConfigFileName is the name of the credentials file.
	ConfigFileName = "credentials.json"
	// FilePermissions for the credentials file (read/write for owner only).
	FilePermissions = 0600
	// DirPermissions for the config directory.
	DirPermissions = 0700
)

// ErrNotLoggedIn indicates no credentials are stored for a host.
var ErrNotLoggedIn = errors.New("not logged in - run 'rfs login <host>' first")

// Credential is the login for one host.
type Credential struct {
	User     string    `json:"user"`
	Password string    `json:"password,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// Preferences represents user preferences.
type Preferences struct {
	DefaultOutput string `json:"default_output,omitempty"` // table, json, yaml
}

// File is the on-disk layout.
type File struct {
	Hosts       map[string]*Credential `json:"hosts"`
	Preferences Preferences            `json:"preferences,omitempty"`
}

// Store manages credential storage and retrieval.
type Store struct {
	path string
	file *File
}

// NewStore opens the store at the default location. A missing file yields
// an empty store.
func NewStore() (*Store, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(path)
}

// NewStoreAt opens the store at path.
func NewStoreAt(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		s.file = &File{}
	}
	if s.file.Hosts == nil {
		s.file.Hosts = make(map[string]*Credential)
	}
	return s, nil
}

// getConfigPath returns the path to the credentials file.
func getConfigPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, DefaultConfigDir, ConfigFileName), nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	s.file = &File{}
	if err := json.Unmarshal(data, s.file); err != nil {
		return fmt.Errorf("corrupt credentials file %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), DirPermissions); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, FilePermissions)
}

func hostKey(host string) string {
	return strings.ToLower(host)
}

// Get returns the credential stored for host.
func (s *Store) Get(host string) (*Credential, error) {
	c, ok := s.file.Hosts[hostKey(host)]
	if !ok {
		return nil, ErrNotLoggedIn
	}
	return c, nil
}

// Set stores the credential for host and saves the file.
func (s *Store) Set(host, user, password string) error {
	if host == "" || user == "" {
		return errors.New("host and user are required")
	}
	s.file.Hosts[hostKey(host)] = &Credential{
		User:     user,
		Password: password,
		SavedAt:  time.Now().UTC(),
	}
	return s.save()
}

// Delete forgets the credential for host.
func (s *Store) Delete(host string) error {
	key := hostKey(host)
	if _, ok := s.file.Hosts[key]; !ok {
		return ErrNotLoggedIn
	}
	delete(s.file.Hosts, key)
	return s.save()
}

// Hosts returns the hosts with stored credentials, sorted.
func (s *Store) Hosts() []string {
	hosts := make([]string, 0, len(s.file.Hosts))
	for h := range s.file.Hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Apply returns rawURL with the stored credential of its host filled in.
// URLs that already name a user, and hosts without a credential, are
// returned unchanged.
func (s *Store) Apply(rawURL string) string {
	c := smburl.Parse(rawURL)
	if c.IsLocal() || c.User != "" {
		return rawURL
	}
	cred, ok := s.file.Hosts[hostKey(c.Host)]
	if !ok {
		return rawURL
	}
	return c.WithUser(cred.User).WithPassword(cred.Password).Raw()
}

// GetPreferences returns the user preferences.
func (s *Store) GetPreferences() Preferences {
	return s.file.Preferences
}

// SetPreferences updates the user preferences.
func (s *Store) SetPreferences(prefs Preferences) error {
	s.file.Preferences = prefs
	return s.save()
}

// ConfigPath returns the path to the credentials file.
func (s *Store) ConfigPath() string {
	return s.path
}
