package hashing

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	apr1Magic = "$apr1$"
	md5Magic  = "$1$"
	shaPrefix = "{SHA}"
)

// HtPasswd produces Apache htpasswd compatible hashes.
type HtPasswd struct {
	hashType string
	cost     int
}

// NewHtPasswd accepts "md5" (the default), "sha", "bcrypt" and "crypt".
// DES crypt is not available, so "crypt" falls back to md5 the way Apache
// does on platforms without crypt(3).
func NewHtPasswd(hashType string) (*HtPasswd, error) {
	switch t := strings.ToLower(hashType); t {
	case "", "md5", "crypt":
		return &HtPasswd{hashType: "md5"}, nil
	case "sha", "bcrypt":
		return &HtPasswd{hashType: t, cost: bcrypt.DefaultCost}, nil
	case "sha256", "sha512":
		return nil, fmt.Errorf("htpasswd hash type %s: %w", t, ErrUnsupportedHash)
	default:
		return nil, fmt.Errorf("unknown htpasswd hash type %q", hashType)
	}
}

func (h *HtPasswd) Name() string { return "htpasswd" }

// HashType is the normalized hash type new records are written with.
func (h *HtPasswd) HashType() string { return h.hashType }

func (h *HtPasswd) GenerateHash(_ string, password string) (string, error) {
	switch h.hashType {
	case "sha":
		sum := sha1.Sum([]byte(password))
		return shaPrefix + base64.StdEncoding.EncodeToString(sum[:]), nil
	case "bcrypt":
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		if err != nil {
			return "", err
		}
		// Apache writes the $2y$ variant; the hash body is the same.
		return "$2y$" + strings.TrimPrefix(string(b), "$2a$"), nil
	default:
		salt, err := randomSalt(8)
		if err != nil {
			return "", err
		}
		return md5Crypt(password, salt, apr1Magic), nil
	}
}

func (h *HtPasswd) CheckHash(_ string, password, hash string) (bool, error) {
	return CheckHtPasswd(password, hash)
}

// CheckHtPasswd checks password against any htpasswd hash the format
// prefix identifies.
func CheckHtPasswd(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, apr1Magic):
		return equal(md5Crypt(password, saltOf(hash, apr1Magic), apr1Magic), hash), nil
	case strings.HasPrefix(hash, md5Magic):
		return equal(md5Crypt(password, saltOf(hash, md5Magic), md5Magic), hash), nil
	case strings.HasPrefix(hash, shaPrefix):
		sum := sha1.Sum([]byte(password))
		return equal(shaPrefix+base64.StdEncoding.EncodeToString(sum[:]), hash), nil
	case strings.HasPrefix(hash, "$2y$"), strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"):
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	case strings.HasPrefix(hash, "$5$"), strings.HasPrefix(hash, "$6$"):
		return false, fmt.Errorf("sha-crypt: %w", ErrUnsupportedHash)
	case len(hash) == 13:
		return false, fmt.Errorf("des crypt: %w", ErrUnsupportedHash)
	}
	return false, ErrUnsupportedHash
}

func saltOf(hash, magic string) string {
	rest := strings.TrimPrefix(hash, magic)
	salt, _, _ := strings.Cut(rest, "$")
	return salt
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func randomSalt(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = itoa64[int(b[i])%len(itoa64)]
	}
	return string(b), nil
}
