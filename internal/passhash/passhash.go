// Package passhash hashes and verifies user passwords with argon2id.
// Hashes are encoded in the PHC string format, so the parameters and salt
// travel with the hash and can be changed without invalidating old records.
package passhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Parameters follow the RFC 9106 low-memory recommendation: slow enough to
// resist brute force, fast enough for interactive login.
const (
	defaultTime    = 3
	defaultMemory  = 64 * 1024
	defaultThreads = 4
	saltLength     = 16
	keyLength      = 32
)

var errMalformedHash = errors.New("malformed argon2id hash")

// Hasher derives and verifies argon2id password hashes.
type Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

// New returns a Hasher with the default parameters.
func New() *Hasher {
	return &Hasher{
		time:    defaultTime,
		memory:  defaultMemory,
		threads: defaultThreads,
	}
}

// Hash derives a salted argon2id hash of the plaintext password and returns
// it in PHC form, e.g. `$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>`.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, keyLength)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory,
		h.time,
		h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// Verify reports whether the plaintext password matches the encoded hash.
// The derived keys are compared in constant time. A malformed hash never
// verifies.
func (h *Hasher) Verify(password, encoded string) bool {
	time, memory, threads, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(key)))

	return subtle.ConstantTimeCompare(candidate, key) == 1
}

func decodeHash(encoded string) (time, memory uint32, threads uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return 0, 0, 0, nil, nil, errMalformedHash
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, errMalformedHash
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, errMalformedHash
	}

	return time, memory, threads, salt, key, nil
}
