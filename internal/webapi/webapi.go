// Package webapi installs the globals scripts see: the URL constructor,
// the extension capability object, console and timers.
//
// Each Setup function registers Go-backed __helpers on the runtime and then
// evaluates the JS glue that wraps them.
package webapi

import (
	"encoding/json"
	"errors"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/eventloop"
	"github.com/cryguy/scripthost/weburl"
)

// SetupFunc installs one group of globals on a runtime.
type SetupFunc func(rt core.JSRuntime, el *eventloop.EventLoop) error

// urlJS defines an immutable URL class over __urlResolve. Component state
// lives in a WeakMap so scripts cannot reach or modify it.
const urlJS = `
(function() {
	var state = new WeakMap();

	function operand(v) {
		if (v === null || v === undefined) return { kind: 'null', text: '' };
		var s = state.get(v);
		if (s) return { kind: 'url', text: s.href };
		return { kind: 'string', text: String(v) };
	}

	function URL(input, base) {
		if (!(this instanceof URL)) throw new TypeError("Constructor URL requires 'new'");
		var ref = operand(input);
		var b = (arguments.length < 2 || base === undefined) ? { kind: 'absent', text: '' } : operand(base);
		var parsed = JSON.parse(__urlResolve(ref.kind, ref.text, b.kind, b.text));
		if (parsed.error) throw new TypeError(parsed.error);
		state.set(this, parsed);
		Object.freeze(this);
	}

	var fields = ['href', 'protocol', 'username', 'password', 'host', 'hostname',
		'port', 'pathname', 'search', 'hash', 'origin'];
	fields.forEach(function(name) {
		Object.defineProperty(URL.prototype, name, {
			get: function() { return state.get(this)[name]; },
			enumerable: true,
			configurable: false
		});
	});
	URL.prototype.toString = function() { return state.get(this).href; };
	URL.prototype.toJSON = function() { return state.get(this).href; };
	Object.defineProperty(URL.prototype, Symbol.toStringTag, { value: 'URL' });
	Object.freeze(URL.prototype);
	Object.freeze(URL);

	Object.defineProperty(globalThis, 'URL', {
		value: URL, writable: false, enumerable: false, configurable: false
	});
})();
`

// URLParsed is the JSON structure returned by __urlResolve.
type URLParsed struct {
	Href     string `json:"href"`
	Protocol string `json:"protocol"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Hostname string `json:"hostname"`
	Port     string `json:"port"`
	Pathname string `json:"pathname"`
	Search   string `json:"search"`
	Hash     string `json:"hash"`
	Origin   string `json:"origin"`
	Error    string `json:"error,omitempty"`
}

// ResolveURL builds a URL from the operands the script passed. A kind is
// "string", "url" (text is the href of an existing URL), "null", or, for
// the base only, "absent".
func ResolveURL(refKind, ref, baseKind, base string) (*weburl.URL, error) {
	refArg, err := operandValue(refKind, ref)
	if err != nil {
		return nil, err
	}
	if baseKind == "absent" {
		return weburl.New(refArg)
	}
	baseArg, err := operandValue(baseKind, base)
	if err != nil {
		return nil, err
	}
	return weburl.New(refArg, baseArg)
}

func operandValue(kind, text string) (any, error) {
	switch kind {
	case "string":
		return text, nil
	case "url":
		return weburl.Parse(text)
	case "null":
		return nil, nil
	default:
		return nil, weburl.ErrInvalidArgument
	}
}

// parsedFrom flattens u into the structure handed to JS.
func parsedFrom(u *weburl.URL) URLParsed {
	return URLParsed{
		Href:     u.Href(),
		Protocol: u.Protocol(),
		Username: u.Username(),
		Password: u.Password(),
		Host:     u.Host(),
		Hostname: u.Hostname(),
		Port:     u.Port(),
		Pathname: u.Pathname(),
		Search:   u.Search(),
		Hash:     u.Hash(),
		Origin:   u.Origin(),
	}
}

// SetupURL registers the Go-backed URL resolver and the URL constructor.
func SetupURL(rt core.JSRuntime, _ *eventloop.EventLoop) error {
	if err := rt.RegisterFunc("__urlResolve", func(refKind, ref, baseKind, base string) string {
		var parsed URLParsed
		u, err := ResolveURL(refKind, ref, baseKind, base)
		switch {
		case errors.Is(err, weburl.ErrInvalidArgument):
			parsed.Error = "Invalid argument: URL input and base must not be null"
		case err != nil:
			parsed.Error = err.Error()
		default:
			parsed = parsedFrom(u)
		}
		data, _ := json.Marshal(parsed)
		return string(data)
	}); err != nil {
		return err
	}
	return rt.Eval(urlJS)
}
