package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argonPrefix = "$argon2id$v=19$"

var b64 = base64.RawStdEncoding

// argonVerifier is a parsed PHC string: $argon2id$v=19$m=..,t=..,p=..$salt$key.
type argonVerifier struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func (v argonVerifier) String() string {
	return argonPrefix +
		"m=" + strconv.FormatUint(uint64(v.params.MemoryKiB), 10) +
		",t=" + strconv.FormatUint(uint64(v.params.Iterations), 10) +
		",p=" + strconv.FormatUint(uint64(v.params.Parallelism), 10) +
		"$" + b64.EncodeToString(v.salt) +
		"$" + b64.EncodeToString(v.key)
}

func derive(secret string, salt []byte, p Argon2idParams) []byte {
	return argon2.IDKey([]byte(secret), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
}

// Hash enforces the policy and returns a fresh Argon2id verifier string.
func (c Config) Hash(secret string) (string, error) {
	if err := c.Validate(secret); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: salt: %w", err)
	}

	v := argonVerifier{params: c.Params, salt: salt, key: derive(secret, salt, c.Params)}
	return v.String(), nil
}

// Verify reports whether secret matches the stored verifier. Both Argon2id
// and legacy bcrypt verifiers are accepted; anything else, or a verifier
// whose cost is far above the configured one, yields ErrInvalidHash.
func (c Config) Verify(stored, secret string) (bool, error) {
	if isBcrypt(stored) {
		return verifyBcrypt(stored, secret)
	}

	v, err := parseArgon(stored)
	if err != nil {
		return false, err
	}
	if !c.acceptable(v.params) {
		return false, ErrInvalidHash
	}

	got := derive(secret, v.salt, v.params)
	return subtle.ConstantTimeCompare(got, v.key) == 1, nil
}

// acceptable allows cheaper historical parameters but caps each cost at
// twice the configured value.
func (c Config) acceptable(p Argon2idParams) bool {
	limit := c.Params
	switch {
	case p.MemoryKiB > 2*limit.MemoryKiB,
		p.Iterations > 2*limit.Iterations,
		uint32(p.Parallelism) > 2*uint32(limit.Parallelism):
		return false
	case p.SaltLength < 8 || p.SaltLength > 64:
		return false
	case p.KeyLength < 16 || p.KeyLength > 128:
		return false
	}
	return true
}

func parseArgon(stored string) (argonVerifier, error) {
	rest, ok := strings.CutPrefix(stored, argonPrefix)
	if !ok {
		return argonVerifier{}, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return argonVerifier{}, ErrInvalidHash
	}

	var p Argon2idParams
	for _, kv := range strings.Split(fields[0], ",") {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return argonVerifier{}, ErrInvalidHash
		}
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || n == 0 {
			return argonVerifier{}, ErrInvalidHash
		}
		switch name {
		case "m":
			p.MemoryKiB = uint32(n)
		case "t":
			p.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return argonVerifier{}, ErrInvalidHash
			}
			p.Parallelism = uint8(n)
		default:
			return argonVerifier{}, ErrInvalidHash
		}
	}
	if p.MemoryKiB == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return argonVerifier{}, ErrInvalidHash
	}

	salt, err := b64.DecodeString(fields[1])
	if err != nil {
		return argonVerifier{}, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[2])
	if err != nil {
		return argonVerifier{}, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt)) // #nosec G115 -- bounded by acceptable().
	p.KeyLength = uint32(len(key))   // #nosec G115 -- bounded by acceptable().

	return argonVerifier{params: p, salt: salt, key: key}, nil
}
