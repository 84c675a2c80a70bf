// Package shardset stores erasure-coded shard sets on disk: one file per
// shard plus a JSON manifest carrying the coding parameters and a
// checksum of the original payload. Shard files can optionally be sealed
// with a passphrase.
package shardset

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sha256 "github.com/minio/sha256-simd"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	saltSize     = 16
	manifestExt  = ".manifest.json"
	shardPattern = "%s.shard.%03d"
)

// Argon2id parameters for the passphrase key derivation.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

var (
	// ErrPassphraseRequired reports a sealed shard set opened without a
	// passphrase.
	ErrPassphraseRequired = errors.New("shardset: passphrase required")

	// ErrNotEnoughShards reports fewer readable shards than the manifest's
	// data shard count.
	ErrNotEnoughShards = errors.New("shardset: not enough shards")
)

// Manifest describes a stored shard set.
type Manifest struct {
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	DataShards  int       `json:"data_shards"`
	TotalShards int       `json:"total_shards"`
	ShardLen    int       `json:"shard_len"`
	FileSize    int64     `json:"file_size"`
	Checksum    string    `json:"checksum_sha256"`
	Encrypted   bool      `json:"encrypted,omitempty"`
	Salt        []byte    `json:"salt,omitempty"`
}

// Shard pairs a shard's payload with its encode-matrix row.
type Shard struct {
	Index int
	Data  []byte
}

// Write stores the shards and their manifest under dir. A non-empty
// passphrase seals each shard with ChaCha20-Poly1305 under an Argon2id
// key. Returns the manifest path.
func Write(dir string, m Manifest, shards []Shard, passphrase []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create shard directory: %w", err)
	}

	var key []byte
	if len(passphrase) > 0 {
		m.Encrypted = true
		m.Salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, m.Salt); err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		key = deriveKey(passphrase, m.Salt)
	}

	for _, shard := range shards {
		data := shard.Data
		if key != nil {
			sealed, err := seal(key, shard.Index, data)
			if err != nil {
				return "", err
			}
			data = sealed
		}

		path := shardPath(dir, m.Name, shard.Index)
		if err := writeFileAtomic(path, data, 0o600); err != nil {
			return "", fmt.Errorf("failed to write shard %d: %w", shard.Index, err)
		}
	}

	manifestPath := filepath.Join(dir, m.Name+manifestExt)
	encoded, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeFileAtomic(manifestPath, encoded, 0o600); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}

	return manifestPath, nil
}

// Load reads a manifest.
func Load(manifestPath string) (Manifest, error) {
	var m Manifest

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.DataShards < 1 || m.TotalShards < m.DataShards || m.ShardLen < 0 {
		return m, fmt.Errorf("manifest %q has impossible coding parameters", manifestPath)
	}

	return m, nil
}

// ReadShards collects every readable shard of the set described by m,
// skipping missing files, files whose length is not ShardLen and, for a
// sealed set, shards that fail authentication. Shards of an unsealed set
// are not checked beyond their length. It fails with ErrNotEnoughShards
// when fewer than DataShards survive.
func ReadShards(manifestPath string, m Manifest, passphrase []byte) ([]Shard, error) {
	if m.Encrypted && len(passphrase) == 0 {
		return nil, ErrPassphraseRequired
	}

	var key []byte
	if m.Encrypted {
		key = deriveKey(passphrase, m.Salt)
	}

	dir := filepath.Dir(manifestPath)

	var shards []Shard
	for i := 0; i < m.TotalShards; i++ {
		data, err := os.ReadFile(shardPath(dir, m.Name, i))
		if err != nil {
			continue
		}

		if key != nil {
			if data, err = open(key, i, data); err != nil {
				continue
			}
		}
		if len(data) != m.ShardLen {
			continue
		}

		shards = append(shards, Shard{Index: i, Data: data})
	}

	if len(shards) < m.DataShards {
		return nil, fmt.Errorf("%w: %d of %d needed", ErrNotEnoughShards, len(shards), m.DataShards)
	}

	return shards, nil
}

// Checksum returns the hex SHA-256 of the original payload, as stored in
// the manifest.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func shardPath(dir, name string, index int) string {
	return filepath.Join(dir, fmt.Sprintf(shardPattern, name, index))
}

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
}

// seal encrypts a shard as nonce || ciphertext, binding the shard index
// as associated data so shards cannot be swapped around.
func seal(key []byte, index int, data []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, data, []byte(strconv.Itoa(index))), nil
}

func open(key []byte, index int, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed shard too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	data, err := aead.Open(nil, nonce, ciphertext, []byte(strconv.Itoa(index)))
	if err != nil {
		return nil, fmt.Errorf("failed to open shard: %w", err)
	}

	return data, nil
}

// writeFileAtomic writes via a temp file in the same directory and
// renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}

	return nil
}
