package uidchange

import (
	"regexp"
	"strings"
)

var ccSeparators = regexp.MustCompile(`[;,\s]+`)

// CCList is a free-text list of user names as stored in ticket cc fields.
type CCList []string

// ParseCCList splits on ';', ',' and whitespace and drops empty and
// repeated entries, keeping first occurrences in order.
func ParseCCList(s string) CCList {
	var out CCList
	for _, cc := range ccSeparators.Split(s, -1) {
		if cc != "" && !out.Contains(cc) {
			out = append(out, cc)
		}
	}
	return out
}

func (l CCList) String() string {
	return strings.Join(l, ", ")
}

func (l CCList) Contains(uid string) bool {
	for _, cc := range l {
		if cc == uid {
			return true
		}
	}
	return false
}

// Replace swaps oldUID for newUID in place and reports whether it was
// present. When newUID is already listed the old entry is dropped instead.
func (l CCList) Replace(oldUID, newUID string) (CCList, bool) {
	out := make(CCList, 0, len(l))
	found := false
	for _, cc := range l {
		if cc == oldUID {
			found = true
			cc = newUID
		}
		if !out.Contains(cc) {
			out = append(out, cc)
		}
	}
	return out, found
}

// likePattern matches any value containing uid, escaping LIKE wildcards
// with a backslash.
func likePattern(uid string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(uid) + "%"
}
