// Package identity maps external player identifiers onto ledger account ids.
package identity

import (
	"errors"
	"net/mail"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("identity_not_found")

type Provider int

const (
	ProviderUnknown Provider = iota
	ProviderTelegram
	ProviderNative
	ProviderEmail
)

func (p Provider) String() string {
	switch p {
	case ProviderTelegram:
		return "tg"
	case ProviderNative:
		return "db"
	case ProviderEmail:
		return "em"
	default:
		return "unknown"
	}
}

// PlayerRef is a parsed external identifier.
type PlayerRef struct {
	Provider Provider
	Subject  string
}

func (r PlayerRef) String() string {
	return r.Provider.String() + ":" + r.Subject
}

// Parse splits a wire id of the form <prefix>:<subject>.
func Parse(external string) (PlayerRef, error) {
	prefix, subject, ok := strings.Cut(strings.TrimSpace(external), ":")
	if !ok || subject == "" {
		return PlayerRef{}, ErrNotFound
	}
	var p Provider
	switch prefix {
	case "tg":
		p = ProviderTelegram
	case "db":
		p = ProviderNative
	case "em":
		p = ProviderEmail
	default:
		return PlayerRef{}, ErrNotFound
	}
	return PlayerRef{Provider: p, Subject: subject}, nil
}

// Canonical rewrites an external id into the one spelling every alias of the
// same account shares, e.g. tg:0042 becomes tg:42.
func Canonical(external string) (string, error) {
	ref, err := Parse(external)
	if err != nil {
		return "", err
	}
	account, err := Resolve(ref)
	if err != nil {
		return "", err
	}
	prefix := ref.Provider.String()
	return prefix + ":" + strings.TrimPrefix(account, prefix+"-"), nil
}

// Resolve returns the internal account id for a parsed reference.
func Resolve(ref PlayerRef) (string, error) {
	switch ref.Provider {
	case ProviderTelegram:
		return resolveTelegram(ref.Subject)
	case ProviderNative:
		return resolveNative(ref.Subject)
	case ProviderEmail:
		return resolveEmail(ref.Subject)
	default:
		return "", ErrNotFound
	}
}

// ResolveAccount parses and resolves in one step.
func ResolveAccount(external string) (string, error) {
	ref, err := Parse(external)
	if err != nil {
		return "", err
	}
	return Resolve(ref)
}

func resolveTelegram(subject string) (string, error) {
	n, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || n <= 0 {
		return "", ErrNotFound
	}
	return "tg-" + strconv.FormatInt(n, 10), nil
}

func resolveNative(subject string) (string, error) {
	id, err := uuid.Parse(subject)
	if err != nil || id == uuid.Nil {
		return "", ErrNotFound
	}
	return "db-" + id.String(), nil
}

func resolveEmail(subject string) (string, error) {
	addr, err := mail.ParseAddress(subject)
	if err != nil || addr.Name != "" || addr.Address != subject {
		return "", ErrNotFound
	}
	return "em-" + strings.ToLower(addr.Address), nil
}
