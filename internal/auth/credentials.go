package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^\+[0-9]{10,15}$`)
	pinPattern   = regexp.MustCompile(`^[0-9]{4}$`)
)

// Credentials holds the phone number and PIN used to log in.
type Credentials struct {
	PhoneNo string
	PIN     string
}

// Validate checks the phone number and PIN formats.
func (c Credentials) Validate() error {
	if !phonePattern.MatchString(c.PhoneNo) {
		return &Error{Message: "invalid phone number format, expected e.g. +4912345678"}
	}
	if !pinPattern.MatchString(c.PIN) {
		return &Error{Message: "invalid PIN format, expected 4 digits"}
	}
	return nil
}

// MaskedPhoneNo returns the phone number with the trailing digits hidden,
// safe for log output.
func (c Credentials) MaskedPhoneNo() string {
	if len(c.PhoneNo) <= 8 {
		return strings.Repeat("*", len(c.PhoneNo))
	}
	return c.PhoneNo[:len(c.PhoneNo)-8] + "********"
}

// LoadCredentials reads a credentials file: phone number on the first
// line, PIN on the second.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, &Error{Message: "failed to read credentials file", Cause: err}
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return Credentials{}, &Error{Message: fmt.Sprintf("malformed credentials file %s", path)}
	}
	creds := Credentials{PhoneNo: strings.TrimSpace(lines[0]), PIN: strings.TrimSpace(lines[1])}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// SaveCredentials writes the credentials file, creating the parent
// directory if needed. The file is readable by the owner only.
func SaveCredentials(path string, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return &Error{Message: "failed to create settings directory", Cause: err}
	}
	content := creds.PhoneNo + "\n" + creds.PIN + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return &Error{Message: "failed to write credentials file", Cause: err}
	}
	return nil
}
