package model

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// HashAlgo names the algorithm of a hashed cast, as in "hashed:argon2".
type HashAlgo string

const (
	// HashArgon2 is salted Argon2id, for passwords.
	HashArgon2 HashAlgo = "argon2"

	// HashBcrypt is salted bcrypt, for passwords. A bare "hashed" cast uses it.
	HashBcrypt HashAlgo = "bcrypt"

	// HashSHA256 is an unsalted hex digest. Not for passwords.
	HashSHA256 HashAlgo = "sha256"

	// HashSHA512 is an unsalted hex digest. Not for passwords.
	HashSHA512 HashAlgo = "sha512"
)

var validHashAlgos = map[HashAlgo]bool{
	HashArgon2: true,
	HashBcrypt: true,
	HashSHA256: true,
	HashSHA512: true,
}

// IsValidHashAlgo reports whether algo is a builtin hash algorithm.
func IsValidHashAlgo(algo HashAlgo) bool {
	return validHashAlgos[algo]
}

// Hasher performs one-way hashing for hashed casts.
type Hasher interface {
	// Hash returns the encoded hash of plaintext. Salted hashers embed
	// their salt and parameters in the result.
	Hash(plaintext []byte) (string, error)
}

// Verifier is implemented by hashers that can check a plaintext against a
// hash they produced.
type Verifier interface {
	Verify(plaintext []byte, hashed string) bool
}

// Argon2Params configures Argon2id hashing.
type Argon2Params struct {
	Time    uint32 // Number of iterations
	Memory  uint32 // Memory usage in KiB
	Threads uint8  // Parallelism factor
	KeyLen  uint32 // Output key length
	SaltLen uint32 // Salt length
}

// DefaultArgon2Params returns the parameters of Argon2.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}
}

type argon2Hasher struct {
	params Argon2Params
}

// Argon2 returns an Argon2id hasher with DefaultArgon2Params.
func Argon2() Hasher {
	return Argon2WithParams(DefaultArgon2Params())
}

// Argon2WithParams returns an Argon2id hasher with custom parameters.
func Argon2WithParams(params Argon2Params) Hasher {
	return &argon2Hasher{params: params}
}

// Hash encodes as $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>.
func (h *argon2Hasher) Hash(plaintext []byte) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	p := h.params
	key := argon2.IDKey(plaintext, salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in hashed.
func (h *argon2Hasher) Verify(plaintext []byte, hashed string) bool {
	parts := strings.Split(hashed, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}
	var (
		version      int
		memory, time uint32
		threads      uint8
	)
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	got := argon2.IDKey(plaintext, salt, time, memory, threads, uint32(len(want))) // #nosec G115 -- key length fits
	return subtle.ConstantTimeCompare(got, want) == 1
}

// BcryptCost is the bcrypt work factor.
type BcryptCost int

// Bcrypt cost bounds.
const (
	BcryptMinCost     = BcryptCost(bcrypt.MinCost)
	BcryptDefaultCost = BcryptCost(bcrypt.DefaultCost)
	BcryptMaxCost     = BcryptCost(bcrypt.MaxCost)
)

type bcryptHasher struct {
	cost int
}

// Bcrypt returns a bcrypt hasher with BcryptDefaultCost.
func Bcrypt() Hasher {
	return BcryptWithCost(BcryptDefaultCost)
}

// BcryptWithCost returns a bcrypt hasher with a specific cost.
func BcryptWithCost(cost BcryptCost) Hasher {
	return &bcryptHasher{cost: int(cost)}
}

func (h *bcryptHasher) Hash(plaintext []byte) (string, error) {
	out, err := bcrypt.GenerateFromPassword(plaintext, h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash failed: %w", err)
	}
	return string(out), nil
}

func (h *bcryptHasher) Verify(plaintext []byte, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), plaintext) == nil
}

// digestHasher hex-encodes an unsalted digest.
type digestHasher struct {
	newHash func() hash.Hash
}

// SHA256Hasher returns a hasher producing 64 hex characters.
func SHA256Hasher() Hasher {
	return &digestHasher{newHash: sha256.New}
}

// SHA512Hasher returns a hasher producing 128 hex characters.
func SHA512Hasher() Hasher {
	return &digestHasher{newHash: sha512.New}
}

func (h *digestHasher) Hash(plaintext []byte) (string, error) {
	d := h.newHash()
	_, _ = d.Write(plaintext)
	return hex.EncodeToString(d.Sum(nil)), nil
}

func (h *digestHasher) Verify(plaintext []byte, hashed string) bool {
	sum, _ := h.Hash(plaintext)
	return subtle.ConstantTimeCompare([]byte(sum), []byte(strings.ToLower(hashed))) == 1
}

// alreadyHashed reports whether value already has the shape produced by
// the hasher for algo, so a stored hash written back is not hashed twice.
func alreadyHashed(algo HashAlgo, value string) bool {
	switch algo {
	case HashBcrypt:
		_, err := bcrypt.Cost([]byte(value))
		return err == nil
	case HashArgon2:
		return strings.HasPrefix(value, "$argon2id$")
	case HashSHA256:
		return isHexOfLen(value, sha256.Size*2)
	case HashSHA512:
		return isHexOfLen(value, sha512.Size*2)
	}
	return false
}

func isHexOfLen(value string, n int) bool {
	if len(value) != n {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}

// builtinHashers returns the hashers every registry starts with.
func builtinHashers() map[HashAlgo]Hasher {
	return map[HashAlgo]Hasher{
		HashArgon2: Argon2(),
		HashBcrypt: Bcrypt(),
		HashSHA256: SHA256Hasher(),
		HashSHA512: SHA512Hasher(),
	}
}

// CheckHashed reports whether plaintext matches the stored hash of key.
// The key must have a hashed cast whose hasher implements Verifier.
func (m *Model) CheckHashed(key, plaintext string) (bool, error) {
	ct, ok, err := m.castFor(key)
	if err != nil {
		return false, err
	}
	if !ok || !ct.is("hashed") {
		return false, &InvalidCastError{Model: m.Name(), Key: key, Cast: "hashed", Cause: fmt.Errorf("%s has no hashed cast", key)}
	}
	algo := HashAlgo(ct.args[0])
	h, ok := m.registry.hasher(algo)
	if !ok {
		return false, newConfigError(ErrMissingHasher, string(algo), key)
	}
	v, ok := h.(Verifier)
	if !ok {
		return false, newConfigError(ErrMissingHasher, string(algo), key)
	}
	stored, _ := m.attributes[key].(string)
	if stored == "" {
		return false, nil
	}
	return v.Verify([]byte(plaintext), stored), nil
}
