package signup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultMinPasswordLength = 12

var defaultEmailSuffixes = []string{"gov", "us", "state", "city", "county", "municipal"}

// Policy holds the tunable signup rules.
type Policy struct {
	// EmailSuffixes lists the accepted final labels of an email domain.
	EmailSuffixes []string `yaml:"email_suffixes"`

	// MinPasswordLength is counted in characters, not bytes.
	MinPasswordLength int `yaml:"min_password_length"`
}

// DefaultPolicy returns the built in government email and password rules.
func DefaultPolicy() Policy {
	return Policy{
		EmailSuffixes:     slices.Clone(defaultEmailSuffixes),
		MinPasswordLength: defaultMinPasswordLength,
	}
}

// Validate checks that the policy can accept at least one address.
func (p Policy) Validate() error {
	if len(p.EmailSuffixes) == 0 {
		return errors.New("at least one email suffix is required")
	}
	for _, s := range p.EmailSuffixes {
		if strings.TrimSpace(s) == "" || strings.Contains(s, ".") {
			return fmt.Errorf("invalid email suffix %q", s)
		}
	}
	if p.MinPasswordLength < 1 {
		return errors.New("min password length must be greater than 0")
	}
	return nil
}

// AllowsDomain reports whether the last label of domain is an accepted suffix.
func (p Policy) AllowsDomain(domain string) bool {
	label := domain
	if i := strings.LastIndex(domain, "."); i >= 0 {
		label = domain[i+1:]
	}
	for _, s := range p.EmailSuffixes {
		if strings.EqualFold(strings.TrimSpace(s), label) {
			return true
		}
	}
	return false
}

type policyFile struct {
	EmailSuffixes     *[]string `yaml:"email_suffixes"`
	MinPasswordLength *int      `yaml:"min_password_length"`
}

// ParsePolicy overlays YAML settings on the default policy. Keys that are
// absent keep their default value.
func ParsePolicy(data []byte) (Policy, error) {
	var pf policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}

	p := DefaultPolicy()
	if pf.EmailSuffixes != nil {
		p.EmailSuffixes = *pf.EmailSuffixes
	}
	if pf.MinPasswordLength != nil {
		p.MinPasswordLength = *pf.MinPasswordLength
	}

	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// LoadPolicy reads a YAML policy file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}
