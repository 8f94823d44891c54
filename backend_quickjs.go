//go:build !v8

package scripthost

import (
	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/quickjs"
)

// Backend names the script engine compiled into this binary.
const Backend = "quickjs"

func newRuntime(cfg core.EngineConfig) (core.JSRuntime, error) {
	return quickjs.New(cfg)
}
