// Package custom provides a bridge between the Go core and Lua-based site scripts.
package custom

import (
	"fmt"

	libs "github.com/metafates/mangal-lua-libs"
	lua "github.com/yuin/gopher-lua"

	"github.com/ovod-cli/ovod/constant"
	"github.com/ovod-cli/ovod/internal/scraper"
	"github.com/ovod-cli/ovod/network"
	"github.com/ovod-cli/ovod/source"
)

// LoadSource initializes a source.Source by executing and validating a Lua
// site script. client backs the script's http_tls module.
func LoadSource(key, name, path string, client *network.Client) (source.Source, error) {
	state := lua.NewState()
	libs.Preload(state)
	registerTLSClient(state, client)

	if err := scraper.PreCompileAndLoad(state, path); err != nil {
		return nil, err
	}

	required := []string{
		constant.HomeContentFn,
		constant.CategoryContentFn,
		constant.DetailContentFn,
		constant.SearchContentFn,
		constant.PlayerContentFn,
	}
	for _, fn := range required {
		if state.GetGlobal(fn).Type() != lua.LTFunction {
			return nil, fmt.Errorf("function %s is required but not defined in %s", fn, path)
		}
	}

	return &luaSource{key: key, name: name, state: state}, nil
}
