package registration

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var reservedNames = []string{"anonymous", "authenticated"}

// BasicCheck rejects empty, blacklisted, upper-cased, reserved and taken
// user names and inconsistent passwords.
type BasicCheck struct {
	Accounts  Accounts
	Blacklist string
}

func (c *BasicCheck) Name() string { return "BasicCheck" }

func (c *BasicCheck) Validate(ctx context.Context, req *Request) error {
	uid := username(c.Accounts, req)
	if uid == "" {
		return reject(c.Name(), "Username cannot be empty.")
	}
	if c.Blacklist != "" && strings.ContainsAny(uid, c.Blacklist) {
		chars := make([]string, 0, len(c.Blacklist))
		for _, r := range c.Blacklist {
			chars = append(chars, "'"+string(r)+"'")
		}
		return reject(c.Name(), "The username must not contain any of these characters: %s",
			strings.Join(chars, ", "))
	}
	if strings.ToUpper(uid) == uid && strings.ToLower(uid) != uid {
		return reject(c.Name(), "A username with only upper-cased characters is not allowed.")
	}
	for _, r := range reservedNames {
		if strings.EqualFold(uid, r) {
			return reject(c.Name(), "Username %s is not allowed.", uid)
		}
	}

	users, err := c.Accounts.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		if strings.EqualFold(u, uid) {
			return reject(c.Name(),
				"Another account or group already exists, who's name differs from %s only by case or is identical.", uid)
		}
	}

	if req.Password == "" {
		return reject(c.Name(), "Password cannot be empty.")
	}
	if req.Password != req.PasswordConfirm {
		return reject(c.Name(), "The passwords must match.")
	}
	return nil
}

// BotTrapCheck requires the hidden sentinel to stay empty and the visible
// token to match.
type BotTrapCheck struct {
	Token string
}

func (c *BotTrapCheck) Name() string { return "BotTrapCheck" }

func (c *BotTrapCheck) Validate(_ context.Context, req *Request) error {
	if req.Admin {
		return nil
	}
	if req.Sentinel != "" || (c.Token != "" && c.Token != req.BasicToken) {
		return reject(c.Name(), "Are you human? If so, try harder!")
	}
	return nil
}

// EmailCheck requires a well-formed, unused email address when account
// verification is on.
type EmailCheck struct {
	Accounts Accounts
	Verify   bool
	validate *validator.Validate
}

func NewEmailCheck(a Accounts, verify bool) *EmailCheck {
	return &EmailCheck{Accounts: a, Verify: verify, validate: validator.New()}
}

func (c *EmailCheck) Name() string { return "EmailCheck" }

func (c *EmailCheck) Validate(ctx context.Context, req *Request) error {
	if !c.Verify {
		return nil
	}
	email := strings.TrimSpace(req.Email)
	if err := c.validate.Var(email, "required,email"); err != nil {
		return reject(c.Name(), "You must specify a valid email address.")
	}
	used, err := c.Accounts.EmailAssociated(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up email: %w", err)
	}
	if used {
		return reject(c.Name(), "The email address specified is already in use. Please specify a different one.")
	}
	return nil
}

// RegExpCheck applies the local naming policy and, with verification on,
// the email pattern.
type RegExpCheck struct {
	Accounts Accounts
	Username *regexp.Regexp
	Email    *regexp.Regexp
	Verify   bool
}

// NewRegExpCheck compiles the patterns; an empty pattern disables its check.
func NewRegExpCheck(a Accounts, usernameRe, emailRe string, verify bool) (*RegExpCheck, error) {
	c := &RegExpCheck{Accounts: a, Verify: verify}
	var err error
	if s := strings.TrimSpace(usernameRe); s != "" {
		if c.Username, err = regexp.Compile(s); err != nil {
			return nil, fmt.Errorf("invalid username_regexp: %w", err)
		}
	}
	if s := strings.TrimSpace(emailRe); s != "" {
		if c.Email, err = regexp.Compile(s); err != nil {
			return nil, fmt.Errorf("invalid email_regexp: %w", err)
		}
	}
	return c, nil
}

func (c *RegExpCheck) Name() string { return "RegExpCheck" }

func (c *RegExpCheck) Validate(_ context.Context, req *Request) error {
	uid := username(c.Accounts, req)
	if c.Username != nil && !c.Username.MatchString(uid) {
		return reject(c.Name(), "Username %s doesn't match local naming policy.", uid)
	}
	if c.Verify && c.Email != nil && !c.Email.MatchString(strings.TrimSpace(req.Email)) {
		return reject(c.Name(), "The email address specified appears to be invalid. Please specify a valid email address.")
	}
	return nil
}

// UsernamePermCheck rejects names already used as permission subjects,
// which covers groups that have no account.
type UsernamePermCheck struct {
	Accounts Accounts
}

func (c *UsernamePermCheck) Name() string { return "UsernamePermCheck" }

func (c *UsernamePermCheck) Validate(ctx context.Context, req *Request) error {
	if req.Admin {
		return nil
	}
	uid := username(c.Accounts, req)
	subjects, err := c.Accounts.PermissionSubjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list permission subjects: %w", err)
	}
	for _, s := range subjects {
		if strings.EqualFold(s, uid) {
			return reject(c.Name(),
				"Another account or group already exists, who's name differs from %s only by case or is identical.", uid)
		}
	}
	return nil
}
