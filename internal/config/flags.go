package config

import (
	"flag"
	"os"
	"strings"

	"github.com/dmitrijs2005/acctmgr/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-l string   log level
//	-D string   database driver ("sqlite" or "pgx")
//	-d string   database DSN
//	-s string   comma separated password store order
//	-H string   session store hash method
//	-f string   htpasswd file
//	-g string   htdigest file
//	-r string   htdigest realm
//	-u string   authentication URL for the HTTP store
//	-i          lower-case every user name
//	-m string   metrics listen address
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-l", "-D", "-d", "-s", "-H", "-f", "-g", "-r", "-u", "-i", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.DatabaseDriver, "D", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	stores := fs.String("s", strings.Join(config.PasswordStores, ","), "password stores, in order")
	fs.StringVar(&config.HashMethod, "H", config.HashMethod, "session store hash method")
	fs.StringVar(&config.HtPasswdFile, "f", config.HtPasswdFile, "htpasswd file")
	fs.StringVar(&config.HtDigestFile, "g", config.HtDigestFile, "htdigest file")
	fs.StringVar(&config.HtDigestRealm, "r", config.HtDigestRealm, "htdigest realm")
	fs.StringVar(&config.AuthenticationURL, "u", config.AuthenticationURL, "authentication URL")
	fs.BoolVar(&config.IgnoreAuthCase, "i", config.IgnoreAuthCase, "ignore user name case")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.PasswordStores = splitList(*stores)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
