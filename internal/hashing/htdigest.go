package hashing

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
)

// DigestHA1 is the htdigest record hash: hex(md5("user:realm:password")).
func DigestHA1(user, realm, password string) string {
	sum := md5.Sum([]byte(user + ":" + realm + ":" + password))
	return hex.EncodeToString(sum[:])
}

// HtDigest stores "realm:HA1" so the realm travels with the hash.
type HtDigest struct {
	realm string
}

func NewHtDigest(realm string) *HtDigest {
	return &HtDigest{realm: realm}
}

func (h *HtDigest) Name() string { return "htdigest" }

func (h *HtDigest) GenerateHash(uid, password string) (string, error) {
	return h.realm + ":" + DigestHA1(uid, h.realm, password), nil
}

func (h *HtDigest) CheckHash(uid, password, hash string) (bool, error) {
	want, _ := h.GenerateHash(uid, password)
	return subtle.ConstantTimeCompare([]byte(want), []byte(hash)) == 1, nil
}
