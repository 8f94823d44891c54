//go:build v8

package scripthost

import (
	"github.com/cryguy/scripthost/internal/core"
	"github.com/cryguy/scripthost/internal/v8engine"
)

// Backend names the script engine compiled into this binary.
const Backend = "v8"

func newRuntime(cfg core.EngineConfig) (core.JSRuntime, error) {
	return v8engine.New(cfg)
}
