// Package keystore stores API keys encrypted at rest for the CLI.
package keystore

import (
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/petal-labs/iris-messages/core"
)

// Keystore defines the interface for secure key storage.
type Keystore interface {
	// Set stores a key under name, replacing any previous value.
	Set(name string, key core.Secret) error
	// Get retrieves a key by name. Returns *NotFoundError if absent.
	Get(name string) (core.Secret, error)
	// Delete removes a key by name.
	Delete(name string) error
	// List returns all stored key names, sorted.
	List() ([]string, error)
}

// ErrNotFound matches every *NotFoundError via errors.Is.
var ErrNotFound = errors.New("keystore: key not found")

// NotFoundError is returned when a requested key does not exist.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "key not found: " + e.Name
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MasterKeyEnvVar, when set, supplies the master key the store is sealed with.
const MasterKeyEnvVar = "IRIS_MESSAGES_MASTER_KEY"

// MasterKeySource provides the secret every stored key is sealed with.
type MasterKeySource interface {
	MasterKey() ([]byte, error)
}

// EnvMasterKey reads the master key from an environment variable.
type EnvMasterKey struct {
	Var string
}

func (e EnvMasterKey) MasterKey() ([]byte, error) {
	v := os.Getenv(e.Var)
	if v == "" {
		return nil, errors.New("keystore: " + e.Var + " is not set")
	}
	return []byte(v), nil
}

// MachineMasterKey derives a master key from the host and user names. It only
// keeps keys out of casual view; anyone on the same account can recompute it.
type MachineMasterKey struct{}

func (MachineMasterKey) MasterKey() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	sum := sha256.Sum256([]byte(hostname + ":" + username + ":iris-messages-keystore"))
	return sum[:], nil
}

// DefaultMasterKeySource prefers MasterKeyEnvVar and falls back to the
// machine-derived key.
func DefaultMasterKeySource() MasterKeySource {
	if os.Getenv(MasterKeyEnvVar) != "" {
		return EnvMasterKey{Var: MasterKeyEnvVar}
	}
	return MachineMasterKey{}
}

// DefaultKeystorePath returns the default keystore file path.
// - macOS/Linux: ~/.iris-messages/keys.enc
// - Windows: %USERPROFILE%\.iris-messages\keys.enc
func DefaultKeystorePath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		return "keys.enc"
	}

	return filepath.Join(homeDir, ".iris-messages", "keys.enc")
}

// NewKeystore opens the file keystore at the default path.
func NewKeystore() (Keystore, error) {
	return NewFileKeystore(DefaultKeystorePath(), DefaultMasterKeySource())
}
