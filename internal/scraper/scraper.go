// Package scraper coordinates compilation and refresh of Lua scraping scripts.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/ovod-cli/ovod/filesystem"
	"github.com/ovod-cli/ovod/log"
	"github.com/ovod-cli/ovod/network"
)

var bytecodeCache sync.Map

// PreCompileAndLoad executes a Lua script within the provided LState,
// utilizing a bytecode cache to minimize compilation overhead when many
// adapters share one script.
func PreCompileAndLoad(L *lua.LState, scriptPath string) error {
	if cachedProto, exists := bytecodeCache.Load(scriptPath); exists {
		fn := L.NewFunctionFromProto(cachedProto.(*lua.FunctionProto))
		L.Push(fn)
		return L.PCall(0, lua.MultRet, nil)
	}

	content, err := filesystem.API().ReadFile(scriptPath)
	if err != nil {
		return err
	}

	chunk, err := parse.Parse(bytes.NewReader(content), scriptPath)
	if err != nil {
		return err
	}

	proto, err := lua.Compile(chunk, scriptPath)
	if err != nil {
		return err
	}

	bytecodeCache.Store(scriptPath, proto)

	fn := L.NewFunctionFromProto(proto)
	L.Push(fn)
	return L.PCall(0, lua.MultRet, nil)
}

// Update fetches a script from its remote URL and swaps the local copy when
// the content changed. The bytecode cache entry is dropped so the next load
// recompiles.
func Update(ctx context.Context, client *network.Client, remoteURL, localPath string) (bool, error) {
	resp, err := client.Get(ctx, remoteURL, nil)
	if err != nil {
		return false, fmt.Errorf("fetch script: %w", err)
	}

	current, err := filesystem.API().ReadFile(localPath)
	if err == nil && bytes.Equal(current, resp.Body) {
		return false, nil
	}

	if err := filesystem.API().WriteFile(localPath, resp.Body, 0o644); err != nil {
		return false, fmt.Errorf("write script: %w", err)
	}

	bytecodeCache.Delete(localPath)
	log.Infof("updated script %s from %s", localPath, remoteURL)
	return true, nil
}
