package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	configFlags := []string{"-c", "-config"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"config path after short flag", []string{"-d", "sqlite", "-c", "acctmgr.json"}, configFlags, []string{"-c", "acctmgr.json"}},
		{"equals form kept whole", []string{"-config=/etc/acctmgr.json", "-l", "debug"}, configFlags, []string{"-config=/etc/acctmgr.json"}},
		{"equals form with dashed value", []string{"-config=-odd.json"}, configFlags, []string{"-config=-odd.json"}},
		{"equals form of other flag dropped", []string{"-stores=SessionStore,HtPasswdStore"}, configFlags, []string{}},
		{"dangling flag", []string{"-l", "info", "-c"}, configFlags, []string{"-c"}},
		{"next flag is not a value", []string{"-c", "-refresh"}, configFlags, []string{"-c"}},
		{"positional args ignored", []string{"users", "alice"}, configFlags, []string{}},
		{"store flags selected in order", []string{"-s", "SessionStore", "-c", "a.json", "-htpasswd", "/srv/htpasswd"}, []string{"-htpasswd", "-s"}, []string{"-s", "SessionStore", "-htpasswd", "/srv/htpasswd"}},
		{"repeats preserved", []string{"-c", "base.json", "-config=site.json"}, configFlags, []string{"-c", "base.json", "-config=site.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestFilterArgs_NeverNil(t *testing.T) {
	for _, args := range [][]string{nil, {}, {"-x"}} {
		got := FilterArgs(args, nil)
		require.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestJsonConfigFlags(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"acctmgr", "-c", "/etc/acctmgr.json"}, "/etc/acctmgr.json"},
		{"long", []string{"acctmgr", "-config", "site.json"}, "site.json"},
		{"equals", []string{"acctmgr", "-d", "pgx", "-config=site.json"}, "site.json"},
		{"last one wins", []string{"acctmgr", "-c", "a.json", "-config", "b.json"}, "b.json"},
		{"absent", []string{"acctmgr", "-l", "debug", "-s", "SessionStore"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			assert.Equal(t, tt.want, JsonConfigFlags())
		})
	}
}
