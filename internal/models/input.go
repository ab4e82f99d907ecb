package models

import (
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"notes/internal/errs"
)

const (
	MaxNameLen          = 20
	MaxEmailLen         = 120
	MaxTitleLen         = 20
	MaxCategoryLen      = 20
	MinPasswordLen      = 6
	MaxPasswordBytes    = 72 // bcrypt ignores anything past this
	msgRequired         = "This field is required."
	msgPasswordMismatch = "Passwords have to match."
)

// Clean normalises user supplied text: NFC form, no NUL bytes, trimmed.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(norm.NFC.String(s))
}

type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	RepeatPassword string
}

func (in *RegisterInput) Validate() error {
	in.Name = Clean(in.Name)
	in.Email = Clean(in.Email)

	v := &errs.ValidationError{}
	checkText(v, "name", in.Name, MaxNameLen)
	checkText(v, "email", in.Email, MaxEmailLen)
	if in.Email != "" && v.For("email") == "" {
		if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
			v.Add("email", "Enter a valid email address.")
		}
	}
	switch {
	case in.Password == "":
		v.Add("password", msgRequired)
	case utf8.RuneCountInString(in.Password) < MinPasswordLen:
		v.Add("password", "Password must be at least 6 characters.")
	case len(in.Password) > MaxPasswordBytes:
		v.Add("password", "Password is too long.")
	}
	if in.RepeatPassword != in.Password {
		v.Add("repeat_password", msgPasswordMismatch)
	}
	return v.OrNil()
}

type LoginInput struct {
	Email    string
	Password string
	Remember bool
}

func (in *LoginInput) Validate() error {
	in.Email = Clean(in.Email)

	v := &errs.ValidationError{}
	if in.Email == "" {
		v.Add("email", msgRequired)
	}
	if in.Password == "" {
		v.Add("password", msgRequired)
	}
	return v.OrNil()
}

type CategoryInput struct {
	Name string
}

func (in *CategoryInput) Validate() error {
	in.Name = Clean(in.Name)

	v := &errs.ValidationError{}
	checkText(v, "name", in.Name, MaxCategoryLen)
	return v.OrNil()
}

type NoteInput struct {
	Title       string
	Text        string
	CategoryIDs []int
}

func (in *NoteInput) Validate() error {
	in.Title = Clean(in.Title)
	in.Text = strings.TrimSpace(norm.NFC.String(in.Text))
	in.CategoryIDs = uniqueIDs(in.CategoryIDs)

	v := &errs.ValidationError{}
	checkText(v, "title", in.Title, MaxTitleLen)
	if in.Text == "" {
		v.Add("text", msgRequired)
	}
	return v.OrNil()
}

func checkText(v *errs.ValidationError, field, value string, limit int) {
	switch {
	case value == "":
		v.Add(field, msgRequired)
	case utf8.RuneCountInString(value) > limit:
		v.Add(field, "Must be at most "+strconv.Itoa(limit)+" characters.")
	}
}

func uniqueIDs(ids []int) []int {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
