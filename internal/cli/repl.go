package cli

import (
	"context"
	"fmt"
	"strings"
)

const helpText = `Available commands:
  users                       list users of every password store
  exists <uid>                show the store owning a user
  check <uid>                 verify a password
  passwd <uid>                set a password
  create <uid> [email]        create an account
  delete <uid>                delete an account
  reset <uid> [email]         generate a new password
  rename <old> <new> [-f]     change a user id, -f overwrites attributes
  locked <uid>                show the lock state of an account
  seen [uid]                  show last visits
  exit | quit                 leave the console`

type command struct {
	minArgs int
	usage   string
	run     func(a *App, ctx context.Context, args []string) error
}

func commands() map[string]command {
	return map[string]command{
		"users":  {0, "users", (*App).users},
		"exists": {1, "exists <uid>", (*App).exists},
		"check":  {1, "check <uid>", (*App).check},
		"passwd": {1, "passwd <uid>", (*App).passwd},
		"create": {1, "create <uid> [email]", (*App).create},
		"delete": {1, "delete <uid>", (*App).delete},
		"reset":  {1, "reset <uid> [email]", (*App).reset},
		"rename": {2, "rename <old> <new> [-f]", (*App).rename},
		"locked": {1, "locked <uid>", (*App).locked},
		"seen":   {0, "seen [uid]", (*App).seen},
	}
}

// Run reads commands until EOF, exit or ctx cancellation. Command errors are
// printed and the loop goes on.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Account manager console (type 'help' for commands)")
	cmds := commands()

	for ctx.Err() == nil {
		fmt.Fprint(a.out, "acctmgr> ")
		line, readErr := a.reader.ReadString('\n')

		if parts := strings.Fields(line); len(parts) > 0 {
			if !a.dispatch(ctx, cmds, parts[0], parts[1:]) {
				return
			}
		}
		if readErr != nil {
			fmt.Fprintln(a.out)
			return
		}
	}
}

func (a *App) dispatch(ctx context.Context, cmds map[string]command, name string, args []string) bool {
	switch name {
	case "help":
		fmt.Fprintln(a.out, helpText)
		return true
	case "exit", "quit":
		fmt.Fprintln(a.out, "Bye!")
		return false
	}

	c, ok := cmds[name]
	if !ok {
		fmt.Fprintln(a.out, "Unknown command:", name)
		return true
	}
	if len(args) < c.minArgs {
		fmt.Fprintln(a.out, "Usage:", c.usage)
		return true
	}
	if err := c.run(a, ctx, args); err != nil {
		a.log.Debug(ctx, "command failed", "command", name, "error", err)
		fmt.Fprintf(a.out, "Error: %v\n", err)
	}
	return true
}
