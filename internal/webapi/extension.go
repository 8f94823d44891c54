package webapi

import (
	"context"

	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/eventloop"
	"github.com/cryguy/scripthost/output"
)

// OutputSource hands out the sink behind extension.Output. The first call
// may block until the sink exists.
type OutputSource interface {
	Output(ctx context.Context) (output.Writer, error)
}

// extensionJS exposes the capability object. Only the two write methods
// are reachable from scripts.
const extensionJS = `
(function() {
	var out = Object.freeze({
		Write: function(text) {
			__extensionWrite(text === undefined ? '' : String(text), false);
		},
		WriteLine: function(text) {
			__extensionWrite(text === undefined ? '' : String(text), true);
		}
	});
	Object.defineProperty(globalThis, 'extension', {
		value: Object.freeze({ Output: out }),
		writable: false, enumerable: false, configurable: false
	});
})();
`

// Extension returns a SetupFunc installing the extension global backed by
// src. Output failures surface to the script as a TypeError.
func Extension(src OutputSource) SetupFunc {
	return func(rt core.JSRuntime, _ *eventloop.EventLoop) error {
		if err := rt.RegisterFunc("__extensionWrite", func(text string, newline bool) (string, error) {
			w, err := src.Output(context.Background())
			if err != nil {
				return "", err
			}
			if newline {
				return "", w.WriteLine(text)
			}
			_, err = w.WriteString(text)
			return "", err
		}); err != nil {
			return err
		}
		return rt.Eval(extensionJS)
	}
}
