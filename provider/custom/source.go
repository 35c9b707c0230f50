// Package custom provides a bridge between the Go core and Lua-based site scripts.
package custom

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/ovod-cli/ovod/constant"
	"github.com/ovod-cli/ovod/source"
)

// luaSource adapts one loaded script to the adapter contract. An LState is
// single-threaded; mu serializes every interaction with it, including
// argument table construction.
type luaSource struct {
	key   string
	name  string
	state *lua.LState

	mu sync.Mutex
}

func (s *luaSource) Key() string  { return s.key }
func (s *luaSource) Name() string { return s.name }

// call executes a global Lua function and returns its single table result.
// args builds the argument list under the state lock.
func (s *luaSource) call(ctx context.Context, fn string, args func(L *lua.LState) []lua.LValue) (*lua.LTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	luaFn := s.state.GetGlobal(fn)
	if luaFn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("function %s is not defined", fn)
	}

	s.state.SetContext(ctx)
	defer s.state.SetContext(nil)

	err := s.state.CallByParam(lua.P{
		Fn:      luaFn,
		NRet:    1,
		Protect: true,
	}, args(s.state)...)
	if err != nil {
		return nil, err
	}

	retval := s.state.Get(-1)
	s.state.Pop(1)

	table, ok := retval.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%s returned %s, expected table", fn, retval.Type())
	}
	return table, nil
}

func (s *luaSource) Home(ctx context.Context, filter bool) (source.Home, error) {
	table, err := s.call(ctx, constant.HomeContentFn, func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LBool(filter)}
	})
	if err != nil {
		return source.Home{}, err
	}
	return homeFromTable(table), nil
}

func (s *luaSource) Category(ctx context.Context, tid string, page int, filter bool, extend map[string]string) (source.ItemPage, error) {
	table, err := s.call(ctx, constant.CategoryContentFn, func(L *lua.LState) []lua.LValue {
		extendTbl := L.NewTable()
		for k, v := range extend {
			extendTbl.RawSetString(k, lua.LString(v))
		}
		return []lua.LValue{lua.LString(tid), lua.LNumber(page), lua.LBool(filter), extendTbl}
	})
	if err != nil {
		return source.ItemPage{}, err
	}
	return pageFromTable(table), nil
}

func (s *luaSource) Detail(ctx context.Context, ids []string) ([]source.Item, error) {
	var out []source.Item
	for _, id := range ids {
		table, err := s.call(ctx, constant.DetailContentFn, func(*lua.LState) []lua.LValue {
			return []lua.LValue{lua.LString(id)}
		})
		if err != nil {
			return nil, err
		}
		item, ok := itemFromTable(table)
		if !ok {
			continue
		}
		item.ID = id
		out = append(out, item)
	}
	if len(out) == 0 && len(ids) > 0 {
		return nil, source.ErrNotFound
	}
	return out, nil
}

func (s *luaSource) Search(ctx context.Context, keyword string, quick bool) ([]source.Item, error) {
	table, err := s.call(ctx, constant.SearchContentFn, func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LString(keyword), lua.LBool(quick)}
	})
	if err != nil {
		return nil, err
	}
	return itemsFromTable(table), nil
}

func (s *luaSource) Player(ctx context.Context, flag, id string, vipFlags []string) (source.Playback, error) {
	table, err := s.call(ctx, constant.PlayerContentFn, func(L *lua.LState) []lua.LValue {
		vipTbl := L.NewTable()
		for _, v := range vipFlags {
			vipTbl.Append(lua.LString(v))
		}
		return []lua.LValue{lua.LString(flag), lua.LString(id), vipTbl}
	})
	if err != nil {
		return source.Playback{}, err
	}
	return playbackFromTable(table), nil
}
