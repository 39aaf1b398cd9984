package htfile

import (
	"strings"

	"github.com/dmitrijs2005/acctmgr/internal/hashing"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
)

// HtDigestStore manages "user:realm:HA1" lines of a single realm. Lines of
// other realms are left alone.
type HtDigestStore struct {
	*fileStore
}

func NewHtDigestStore(path, realm string, backend Backend, log logging.Logger) *HtDigestStore {
	return &HtDigestStore{
		fileStore: &fileStore{
			name:    "HtDigestStore",
			option:  "htdigest_file",
			path:    path,
			backend: backend,
			format:  htdigestFormat{digest: hashing.NewHtDigest(realm), realm: realm},
			log:     log.With("store", "HtDigestStore", "realm", realm),
		},
	}
}

type htdigestFormat struct {
	digest *hashing.HtDigest
	realm  string
}

func (f htdigestFormat) prefix(uid string) string { return uid + ":" + f.realm + ":" }

func (f htdigestFormat) record(uid, password string) (string, error) {
	h, err := f.digest.GenerateHash(uid, password)
	if err != nil {
		return "", err
	}
	return uid + ":" + h, nil
}

func (f htdigestFormat) check(uid, password, suffix string) (bool, error) {
	return f.digest.CheckHash(uid, password, f.realm+":"+suffix)
}

func (f htdigestFormat) user(line string) (string, bool) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] != f.realm {
		return "", false
	}
	return parts[0], true
}
