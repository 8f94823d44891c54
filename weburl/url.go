// Package weburl implements the immutable URL value exposed to scripts as
// the global URL constructor.
//
// A URL can be built from a string alone or from a (reference, base) pair in
// any combination of raw strings and already-resolved URLs. Every form goes
// through the WHATWG basic URL parser, so the result is always an absolute,
// normalized URL.
package weburl

import (
	"encoding/json"
	"errors"
	"fmt"

	whatwg "github.com/nlnwa/whatwg-url/url"
)

var (
	// ErrInvalidArgument is returned when a required input is nil or of an
	// unsupported type. It is detected before any parsing happens.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("invalid URL")
)

// ParseError reports a reference or base that could not be parsed or
// resolved.
type ParseError struct {
	Input string
	Base  string // empty when no base was given
	Err   error
}

func (e *ParseError) Error() string {
	if e.Base != "" {
		return fmt.Sprintf("invalid URL %q (base %q): %v", e.Input, e.Base, e.Err)
	}
	return fmt.Sprintf("invalid URL %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes ParseError match ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// URL is an immutable, fully resolved URL. The zero value is not usable;
// construct one with Parse, FromURL, ParseRef, ParseRefURL, ResolveRef,
// ResolveRefURL or New.
type URL struct {
	u *whatwg.Url
}

// Parse parses text as an absolute URL.
func Parse(text string) (*URL, error) {
	return resolve(stringOperand(text), operand{})
}

// FromURL returns a new URL holding the same resolved value as other. The
// parsed value is never mutated after construction, so it is shared.
func FromURL(other *URL) (*URL, error) {
	if other == nil {
		return nil, fmt.Errorf("url: %w", ErrInvalidArgument)
	}
	return &URL{u: other.u}, nil
}

// ParseRef parses base as an absolute URL and resolves text against it.
func ParseRef(text, base string) (*URL, error) {
	return resolve(stringOperand(text), stringOperand(base))
}

// ParseRefURL resolves text against base.
func ParseRefURL(text string, base *URL) (*URL, error) {
	if base == nil {
		return nil, fmt.Errorf("base: %w", ErrInvalidArgument)
	}
	return resolve(stringOperand(text), urlOperand(base))
}

// ResolveRef parses base as an absolute URL and resolves u against it.
func ResolveRef(u *URL, base string) (*URL, error) {
	if u == nil {
		return nil, fmt.Errorf("url: %w", ErrInvalidArgument)
	}
	return resolve(urlOperand(u), stringOperand(base))
}

// ResolveRefURL resolves u against base.
func ResolveRefURL(u, base *URL) (*URL, error) {
	if u == nil {
		return nil, fmt.Errorf("url: %w", ErrInvalidArgument)
	}
	if base == nil {
		return nil, fmt.Errorf("base: %w", ErrInvalidArgument)
	}
	return resolve(urlOperand(u), urlOperand(base))
}

// New dispatches to one of the six constructors from dynamically typed
// inputs. ref and the optional base must each be a string or a non-nil *URL;
// anything else, including nil, fails with ErrInvalidArgument.
func New(ref any, base ...any) (*URL, error) {
	if len(base) > 1 {
		return nil, fmt.Errorf("too many arguments: %w", ErrInvalidArgument)
	}
	r, err := toOperand("url", ref)
	if err != nil {
		return nil, err
	}
	if len(base) == 0 {
		if r.url != nil {
			return FromURL(r.url)
		}
		return resolve(r, operand{})
	}
	b, err := toOperand("base", base[0])
	if err != nil {
		return nil, err
	}
	return resolve(r, b)
}

// Href returns the serialized URL.
func (u *URL) Href() string { return u.u.Href(false) }

// String returns the serialized URL.
func (u *URL) String() string { return u.Href() }

// Protocol returns the scheme followed by ":".
func (u *URL) Protocol() string { return u.u.Protocol() }

func (u *URL) Username() string { return u.u.Username() }

func (u *URL) Password() string { return u.u.Password() }

// Host returns the host and, when not the scheme default, the port.
func (u *URL) Host() string { return u.u.Host() }

func (u *URL) Hostname() string { return u.u.Hostname() }

func (u *URL) Port() string { return u.u.Port() }

func (u *URL) Pathname() string { return u.u.Pathname() }

// Search returns the query with a leading "?", or "" when empty.
func (u *URL) Search() string { return u.u.Search() }

// Hash returns the fragment with a leading "#", or "" when empty.
func (u *URL) Hash() string { return u.u.Hash() }

// Origin returns the serialized tuple origin for special network schemes
// and "null" for everything else.
func (u *URL) Origin() string {
	switch u.u.Scheme() {
	case "http", "https", "ws", "wss", "ftp":
		return u.u.Protocol() + "//" + u.u.Host()
	default:
		return "null"
	}
}

// Equal reports whether u and other serialize to the same URL.
func (u *URL) Equal(other *URL) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.Href() == other.Href()
}

// MarshalText implements encoding.TextMarshaler.
func (u *URL) MarshalText() ([]byte, error) {
	return []byte(u.Href()), nil
}

// MarshalJSON encodes the URL as its href string, like URL.prototype.toJSON.
func (u *URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Href())
}
