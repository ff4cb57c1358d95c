/*
Copyright © 2025 Ian Shuley

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package hasher implements one-way credential hashing with Argon2id.
//
// Hashes use the PHC string format
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<parallelism>$<salt>$<key>
//
// with unpadded standard base64, so they are interchangeable with the hashes
// produced by the other services in the stack. Legacy bcrypt hashes are
// accepted by Verify and always reported by NeedsRehash.
package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2idPrefix = "$argon2id$"

	// Upper bounds accepted when decoding a stored hash. A hash claiming more
	// would let a tampered store pin the CPU or exhaust memory on verify.
	maxMemoryKiB   = 4 * 1024 * 1024
	maxTime        = 64
	maxKeyLength   = 128
	maxSaltLength  = 128
	minSaltLength  = 8
	minKeyLength   = 16
	recommendedMem = 64 * 1024
)

var errMalformedHash = errors.New("malformed argon2id hash")

// Params are the Argon2id cost parameters. They are fixed for the lifetime of
// a Hasher.
type Params struct {
	MemoryKiB   uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns 64 MiB, 3 iterations, 4 lanes, 16 byte salt, 32 byte key
func DefaultParams() Params {
	return Params{
		MemoryKiB:   recommendedMem,
		Time:        3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate rejects parameters Argon2id cannot run with or that make the
// hash trivially weak
func (p Params) Validate() error {
	switch {
	case p.Time == 0 || p.Time > maxTime:
		return fmt.Errorf("time cost must be between 1 and %d, got %d", maxTime, p.Time)
	case p.Parallelism == 0:
		return fmt.Errorf("parallelism must be positive")
	case p.MemoryKiB < 8*uint32(p.Parallelism) || p.MemoryKiB > maxMemoryKiB:
		return fmt.Errorf("memory cost %d KiB is out of range", p.MemoryKiB)
	case p.SaltLength < minSaltLength || p.SaltLength > maxSaltLength:
		return fmt.Errorf("salt length must be between %d and %d bytes", minSaltLength, maxSaltLength)
	case p.KeyLength < minKeyLength || p.KeyLength > maxKeyLength:
		return fmt.Errorf("key length must be between %d and %d bytes", minKeyLength, maxKeyLength)
	}
	return nil
}

// BelowRecommended reports whether p is weaker than DefaultParams on any axis
func (p Params) BelowRecommended() bool {
	return p.weakerThan(DefaultParams())
}

func (p Params) weakerThan(o Params) bool {
	return p.MemoryKiB < o.MemoryKiB ||
		p.Time < o.Time ||
		p.Parallelism < o.Parallelism ||
		p.SaltLength < o.SaltLength ||
		p.KeyLength != o.KeyLength
}

// Hasher hashes and verifies credentials. It is safe for concurrent use.
type Hasher struct {
	params Params
}

// New creates a Hasher with the given parameters
func New(params Params) (*Hasher, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid argon2id parameters: %w", err)
	}
	return &Hasher{params: params}, nil
}

// NewDefault creates a Hasher with DefaultParams
func NewDefault() *Hasher {
	return &Hasher{params: DefaultParams()}
}

// Params returns the parameters new hashes are produced with
func (h *Hasher) Params() Params {
	return h.params
}

// Hash derives a salted Argon2id hash of secret
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		h.params.MemoryKiB, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches encoded. Malformed or unknown hash
// formats yield false. The full key is recomputed and compared in constant
// time.
func (h *Hasher) Verify(secret, encoded string) bool {
	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(secret)) == nil
	}

	decoded, err := decode(encoded)
	if err != nil {
		return false
	}

	derived := argon2.IDKey([]byte(secret), decoded.salt, decoded.params.Time, decoded.params.MemoryKiB, decoded.params.Parallelism, uint32(len(decoded.key)))
	return subtle.ConstantTimeCompare(derived, decoded.key) == 1
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the hasher's current ones. Callers use it to schedule a rehash after
// a successful login, never to reject a valid credential.
func (h *Hasher) NeedsRehash(encoded string) bool {
	if isBcrypt(encoded) {
		return true
	}
	decoded, err := decode(encoded)
	if err != nil {
		return true
	}
	return decoded.params.weakerThan(h.params)
}

type decodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

func decode(encoded string) (*decodedHash, error) {
	if !strings.HasPrefix(encoded, argon2idPrefix) {
		return nil, errMalformedHash
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, errMalformedHash
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	var m, t, p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return nil, errMalformedHash
	}
	if m == 0 || m > maxMemoryKiB || t == 0 || t > maxTime || p == 0 || p > 255 {
		return nil, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 || len(salt) > maxSaltLength {
		return nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxKeyLength {
		return nil, errMalformedHash
	}

	return &decodedHash{
		params: Params{
			MemoryKiB:   m,
			Time:        t,
			Parallelism: uint8(p),
			SaltLength:  uint32(len(salt)),
			KeyLength:   uint32(len(key)),
		},
		salt: salt,
		key:  key,
	}, nil
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}
