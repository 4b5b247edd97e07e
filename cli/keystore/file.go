package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/argon2"

	"github.com/petal-labs/iris-messages/core"
)

// File layout: [magic (4)] [version (1)] [salt (16)] [nonce (12)] [sealed JSON]
// The header is authenticated as additional data.
const (
	magic       = "IRMK"
	version     = byte(0x01)
	saltLength  = 16
	nonceLength = 12
	headerLen   = len(magic) + 1 + saltLength + nonceLength
)

// ErrCorrupt is returned when the keystore file cannot be opened with the
// current master key or is not a keystore file at all.
var ErrCorrupt = errors.New("keystore: file is corrupt or sealed with another master key")

// kdfParams are Argon2id cost parameters.
type kdfParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// OWASP recommended Argon2id settings.
var defaultKDF = kdfParams{time: 3, memory: 64 * 1024, threads: 4}

// FileKeystore implements Keystore as a JSON map sealed with AES-256-GCM.
// A fresh salt and nonce are drawn on every write.
type FileKeystore struct {
	path      string
	masterKey []byte
	kdf       kdfParams
	mu        sync.RWMutex
}

// NewFileKeystore opens (or lazily creates) the keystore at path.
func NewFileKeystore(path string, source MasterKeySource) (*FileKeystore, error) {
	masterKey, err := source.MasterKey()
	if err != nil {
		return nil, err
	}
	if len(masterKey) == 0 {
		return nil, errors.New("keystore: empty master key")
	}

	return &FileKeystore{
		path:      path,
		masterKey: masterKey,
		kdf:       defaultKDF,
	}, nil
}

// Set stores a key under name.
func (f *FileKeystore) Set(name string, key core.Secret) error {
	if name == "" {
		return errors.New("keystore: empty key name")
	}
	if key.IsEmpty() {
		return errors.New("keystore: empty key value")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}

	data[name] = key.Expose()
	return f.save(data)
}

// Get retrieves a key by name.
func (f *FileKeystore) Get(name string) (core.Secret, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.load()
	if err != nil {
		return core.Secret{}, err
	}

	value, ok := data[name]
	if !ok {
		return core.Secret{}, &NotFoundError{Name: name}
	}
	return core.NewSecret(value), nil
}

// Delete removes a key by name.
func (f *FileKeystore) Delete(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}

	if _, ok := data[name]; !ok {
		return &NotFoundError{Name: name}
	}

	delete(data, name)
	return f.save(data)
}

// List returns all stored key names.
func (f *FileKeystore) List() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := f.load()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

// load reads and opens the keystore file. A missing or empty file is an
// empty store.
func (f *FileKeystore) load() (map[string]string, error) {
	data := make(map[string]string)

	sealed, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}
	if len(sealed) == 0 {
		return data, nil
	}

	plaintext, err := f.open(sealed)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, ErrCorrupt
	}
	return data, nil
}

// save seals and writes the keystore file, user-readable only.
func (f *FileKeystore) save(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return err
	}

	plaintext, err := json.Marshal(data)
	if err != nil {
		return err
	}

	sealed, err := f.seal(plaintext)
	if err != nil {
		return err
	}

	return os.WriteFile(f.path, sealed, 0600)
}

func (f *FileKeystore) seal(plaintext []byte) ([]byte, error) {
	header := make([]byte, headerLen)
	copy(header, magic)
	header[len(magic)] = version
	salt := header[len(magic)+1 : len(magic)+1+saltLength]
	nonce := header[len(magic)+1+saltLength:]

	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	gcm, err := f.cipher(salt)
	if err != nil {
		return nil, err
	}
	return append(header, gcm.Seal(nil, nonce, plaintext, header)...), nil
}

func (f *FileKeystore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < headerLen || string(sealed[:len(magic)]) != magic || sealed[len(magic)] != version {
		return nil, ErrCorrupt
	}
	header := sealed[:headerLen]
	salt := header[len(magic)+1 : len(magic)+1+saltLength]
	nonce := header[len(magic)+1+saltLength:]

	gcm, err := f.cipher(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed[headerLen:], header)
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}

func (f *FileKeystore) cipher(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(f.masterKey, salt, f.kdf.time, f.kdf.memory, f.kdf.threads, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

var _ Keystore = (*FileKeystore)(nil)
