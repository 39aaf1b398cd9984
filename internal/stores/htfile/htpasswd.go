package htfile

import (
	"strings"

	"github.com/dmitrijs2005/acctmgr/internal/hashing"
	"github.com/dmitrijs2005/acctmgr/internal/logging"
)

// HtPasswdStore manages "user:hash" lines.
type HtPasswdStore struct {
	*fileStore
}

func NewHtPasswdStore(path string, backend Backend, hash *hashing.HtPasswd, log logging.Logger) *HtPasswdStore {
	return &HtPasswdStore{&fileStore{
		name:    "HtPasswdStore",
		option:  "htpasswd_file",
		path:    path,
		backend: backend,
		format:  htpasswdFormat{hash: hash},
		log:     log.With("store", "HtPasswdStore"),
	}}
}

type htpasswdFormat struct {
	hash *hashing.HtPasswd
}

func (htpasswdFormat) prefix(uid string) string { return uid + ":" }

func (f htpasswdFormat) record(uid, password string) (string, error) {
	h, err := f.hash.GenerateHash(uid, password)
	if err != nil {
		return "", err
	}
	return uid + ":" + h, nil
}

func (htpasswdFormat) check(_, password, suffix string) (bool, error) {
	return hashing.CheckHtPasswd(password, suffix)
}

func (htpasswdFormat) user(line string) (string, bool) {
	uid, _, _ := strings.Cut(line, ":")
	return uid, uid != ""
}
