package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// SecretsDir holds the encrypted provider keys, relative to the work directory.
const SecretsDir = ".autodev"

const secretsFileName = "secrets.json.enc"

// Sealed file layout is salt | nonce | ciphertext+tag. The key is scrypt(password, salt)
// sized for AES-256.
const (
	saltLen  = 16
	nonceLen = 12
	tagLen   = 16
	keyLen   = 32

	scryptCost        = 1 << 15
	scryptBlockSize   = 8
	scryptParallelism = 1
)

// ErrSecretsCorrupt is returned for a secrets file that cannot be opened.
var ErrSecretsCorrupt = errors.New("secrets file is corrupted")

//nolint:gochecknoglobals // keys decrypted at startup
var (
	secretsMu sync.RWMutex
	secrets   map[string]string
)

// SetDecryptedSecrets replaces the in-memory secrets. nil clears them.
func SetDecryptedSecrets(values map[string]string) {
	secretsMu.Lock()
	defer secretsMu.Unlock()
	secrets = values
}

// GetSecret looks name up in the decrypted secrets file, then in the environment.
func GetSecret(name string) (string, error) {
	secretsMu.RLock()
	value := secrets[name]
	secretsMu.RUnlock()
	if value != "" {
		return value, nil
	}

	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// SecretsFilePath returns the encrypted secrets path under workDir.
func SecretsFilePath(workDir string) string {
	return filepath.Join(workDir, SecretsDir, secretsFileName)
}

// LoadSecrets decrypts the secrets file under workDir into memory. A missing file, or a
// file with no password to open it, leaves the environment as the only key source.
func LoadSecrets(workDir, password string) error {
	path := SecretsFilePath(workDir)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if password == "" {
		getLogger().Warn("%s exists but %s is not set; reading API keys from the environment", path, EnvSecretsPassword)
		return nil
	}

	values, err := DecryptSecretsFile(workDir, password)
	if err != nil {
		return err
	}
	SetDecryptedSecrets(values)
	getLogger().Info("Loaded %d secrets from %s", len(values), path)
	return nil
}

// EncryptSecretsFile seals values into the secrets file under workDir with mode 0600.
func EncryptSecretsFile(workDir, password string, values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}
	defer wipe(plaintext)

	sealed, err := seal([]byte(password), plaintext)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(workDir, SecretsDir), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", SecretsDir, err)
	}
	if err := os.WriteFile(SecretsFilePath(workDir), sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// DecryptSecretsFile opens the secrets file under workDir. Loose permissions are
// tightened to 0600 before reading.
func DecryptSecretsFile(workDir, password string) (map[string]string, error) {
	path := SecretsFilePath(workDir)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets file: %w", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		getLogger().Warn("%s has mode %04o, tightening to 0600", path, perm)
		if err := os.Chmod(path, 0o600); err != nil {
			return nil, fmt.Errorf("failed to chmod secrets file: %w", err)
		}
	}

	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	plaintext, err := open([]byte(password), sealed)
	if err != nil {
		return nil, err
	}
	defer wipe(plaintext)

	var values map[string]string
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSecretsCorrupt, err)
	}
	return values, nil
}

func seal(password, plaintext []byte) ([]byte, error) {
	defer wipe(password)

	out := make([]byte, saltLen+nonceLen, saltLen+nonceLen+len(plaintext)+tagLen)
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("failed to read random salt and nonce: %w", err)
	}

	aead, err := aeadFor(password, out[:saltLen])
	if err != nil {
		return nil, err
	}
	return aead.Seal(out, out[saltLen:], plaintext, nil), nil
}

func open(password, sealed []byte) ([]byte, error) {
	defer wipe(password)

	if len(sealed) < saltLen+nonceLen+tagLen {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrSecretsCorrupt, len(sealed))
	}
	aead, err := aeadFor(password, sealed[:saltLen])
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, sealed[saltLen:saltLen+nonceLen], sealed[saltLen+nonceLen:], nil)
	if err != nil {
		return nil, errors.New("decryption failed (wrong password or corrupted file)")
	}
	return plaintext, nil
}

func aeadFor(password, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, scryptCost, scryptBlockSize, scryptParallelism, keyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

func wipe(b []byte) {
	clear(b)
}
