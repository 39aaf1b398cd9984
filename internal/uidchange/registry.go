package uidchange

import (
	"fmt"
	"strings"
)

const (
	ownerOrReporter = "field='owner'|'reporter'"
	ccField         = "field='cc'"
)

// NewTicket builds the composite changer for tickets and their change log.
// Step order matters for the report and for failure attribution.
func NewTicket() *Multi {
	return NewMulti("ticket",
		&Primitive{Table: "ticket", Column: "owner"},
		&Primitive{Table: "ticket", Column: "reporter"},
		&List{Table: "ticket", Column: "cc", KeyColumns: []string{"id"}},
		&Primitive{Table: "ticket_change", Column: "author"},
		&Primitive{Table: "ticket_change", Column: "oldvalue",
			Where: "field = 'owner' OR field = 'reporter'", Constraint: ownerOrReporter},
		&Primitive{Table: "ticket_change", Column: "newvalue",
			Where: "field = 'owner' OR field = 'reporter'", Constraint: ownerOrReporter},
		&List{Table: "ticket_change", Column: "oldvalue", KeyColumns: []string{"ticket", "time"},
			Where: "field = 'cc'", Constraint: ccField},
		&List{Table: "ticket_change", Column: "newvalue", KeyColumns: []string{"ticket", "time"},
			Where: "field = 'cc'", Constraint: ccField},
	)
}

// registered returns the changer known under name.
func registered(name string) (Changer, bool) {
	switch name {
	case "attachment", "report", "revision", "wiki", "screenshot":
		return NewMulti(name, &Primitive{Table: name, Column: "author"}), true
	case "component":
		return NewMulti(name, &Primitive{Table: "component", Column: "owner"}), true
	case "auth_cookie":
		return NewMulti(name, &Unique{Primitive{Table: "auth_cookie", Column: "name"}}), true
	case "permission":
		return NewMulti(name, &Unique{Primitive{Table: "permission", Column: "username"}}), true
	case "ticket":
		return NewTicket(), true
	case "votes":
		return NewMulti(name, &Primitive{Table: "votes", Column: "username"}), true
	case "forms":
		return NewMulti(name,
			&Primitive{Table: "forms", Column: "author"},
			&Primitive{Table: "forms_fields", Column: "author"},
			&Primitive{Table: "forms_history", Column: "author"},
		), true
	case "announcer":
		return NewMulti(name,
			&Primitive{Table: "subscription", Column: "sid"},
			&Primitive{Table: "subscription_attribute", Column: "sid"},
		), true
	}
	return nil, false
}

// BuiltinNames are the changers enabled by default, in execution order.
var BuiltinNames = []string{
	"attachment", "auth_cookie", "component", "permission",
	"report", "revision", "ticket", "wiki",
}

// Lookup resolves a changer name. Besides the registered names it accepts
// "table.column" for a plain column and "table.column!" for a column that
// is part of a unique key.
func Lookup(name string) (Changer, error) {
	name = strings.TrimSpace(name)
	if c, ok := registered(name); ok {
		return c, nil
	}

	unique := strings.HasSuffix(name, "!")
	table, column, ok := strings.Cut(strings.TrimSuffix(name, "!"), ".")
	if !ok {
		return nil, fmt.Errorf("unknown uid changer %q", name)
	}
	if unique {
		return NewUnique(table, column)
	}
	return NewPrimitive(table, column)
}

// FromNames resolves every name, keeping order.
func FromNames(names []string) ([]Changer, error) {
	out := make([]Changer, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		c, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
