package weburl

import (
	"fmt"

	whatwg "github.com/nlnwa/whatwg-url/url"
)

// operand is one side of a resolution: raw text, an already resolved URL,
// or absent (zero value).
type operand struct {
	text    string
	hasText bool
	url     *URL
}

func stringOperand(s string) operand { return operand{text: s, hasText: true} }

func urlOperand(u *URL) operand { return operand{url: u} }

func (o operand) present() bool { return o.hasText || o.url != nil }

// raw returns the operand in string form, used for error reporting and for
// handing a resolved reference back to the parser.
func (o operand) raw() string {
	if o.url != nil {
		return o.url.Href()
	}
	return o.text
}

func toOperand(name string, v any) (operand, error) {
	switch x := v.(type) {
	case string:
		return stringOperand(x), nil
	case *URL:
		if x == nil {
			return operand{}, fmt.Errorf("%s: %w", name, ErrInvalidArgument)
		}
		return urlOperand(x), nil
	case nil:
		return operand{}, fmt.Errorf("%s: %w", name, ErrInvalidArgument)
	default:
		return operand{}, fmt.Errorf("%s: unsupported type %T: %w", name, v, ErrInvalidArgument)
	}
}

// resolve is the single resolution path behind every constructor. Without a
// base the reference must be absolute. With a base the reference is always
// run through the basic parser against it, even when it carries its own
// scheme, so the result is normalized the same way in every form.
func resolve(ref, base operand) (*URL, error) {
	if !ref.present() {
		return nil, fmt.Errorf("url: %w", ErrInvalidArgument)
	}

	if !base.present() {
		u, err := whatwg.Parse(ref.raw())
		if err != nil {
			return nil, &ParseError{Input: ref.raw(), Err: err}
		}
		return newURL(u), nil
	}

	var b *whatwg.Url
	if base.url != nil {
		b = base.url.u
	} else {
		parsed, err := whatwg.Parse(base.text)
		if err != nil {
			return nil, &ParseError{Input: ref.raw(), Base: base.text, Err: fmt.Errorf("base: %w", err)}
		}
		b = parsed
	}

	u, err := b.Parse(ref.raw())
	if err != nil {
		return nil, &ParseError{Input: ref.raw(), Base: base.raw(), Err: err}
	}
	return newURL(u), nil
}

// newURL wraps a freshly parsed value. The parser clones its base on every
// resolution and that clone lazily builds the search params, so they are
// built once here to keep later reads free of writes.
func newURL(u *whatwg.Url) *URL {
	u.SearchParams()
	return &URL{u: u}
}
