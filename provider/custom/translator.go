// Package custom provides a bridge between the Go core and Lua-based site scripts.
package custom

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ovod-cli/ovod/source"
)

func getString(table *lua.LTable, key string) string {
	val := table.RawGetString(key)
	if val.Type() == lua.LTString || val.Type() == lua.LTNumber {
		return val.String()
	}
	return ""
}

func getInt(table *lua.LTable, key string) int {
	val := table.RawGetString(key)
	if n, ok := val.(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

func getBool(table *lua.LTable, key string) bool {
	return lua.LVAsBool(table.RawGetString(key))
}

func getStringMap(table *lua.LTable, key string) map[string]string {
	val := table.RawGetString(key)
	tbl, ok := val.(*lua.LTable)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	tbl.ForEach(func(k, v lua.LValue) {
		out[k.String()] = v.String()
	})
	return out
}

// eachTable iterates the array part of a table, skipping non-table entries.
func eachTable(table *lua.LTable, fn func(*lua.LTable)) {
	if table == nil {
		return
	}
	table.ForEach(func(k, v lua.LValue) {
		if k.Type() != lua.LTNumber {
			return
		}
		if inner, ok := v.(*lua.LTable); ok {
			fn(inner)
		}
	})
}

func itemFromTable(table *lua.LTable) (source.Item, bool) {
	item := source.Item{
		ID:       getString(table, "id"),
		Name:     getString(table, "name"),
		Pic:      getString(table, "pic"),
		Remarks:  getString(table, "remarks"),
		Year:     getString(table, "year"),
		Area:     getString(table, "area"),
		Actor:    getString(table, "actor"),
		Director: getString(table, "director"),
		Content:  strings.TrimSpace(getString(table, "content")),
	}
	if item.Name == "" {
		return source.Item{}, false
	}

	// Flags arrive either as an explicit list of {name, episodes} tables
	// or as encoded play_from / play_url strings.
	if flagsTbl, ok := table.RawGetString("flags").(*lua.LTable); ok {
		eachTable(flagsTbl, func(f *lua.LTable) {
			flag := source.Flag{Name: getString(f, "name")}
			if epsTbl, ok := f.RawGetString("episodes").(*lua.LTable); ok {
				eachTable(epsTbl, func(e *lua.LTable) {
					name, url := getString(e, "name"), getString(e, "url")
					if url == "" {
						return
					}
					if name == "" {
						name = url
					}
					flag.Episodes = append(flag.Episodes, source.Episode{Name: name, URL: url})
				})
			}
			if len(flag.Episodes) > 0 {
				item.Flags = append(item.Flags, flag)
			}
		})
	} else {
		item.Flags = source.DecodeFlags(getString(table, "play_from"), getString(table, "play_url"))
	}
	return item, true
}

func itemsFromTable(table *lua.LTable) []source.Item {
	var out []source.Item
	eachTable(table, func(t *lua.LTable) {
		if item, ok := itemFromTable(t); ok {
			out = append(out, item)
		}
	})
	return out
}

func homeFromTable(table *lua.LTable) source.Home {
	home := source.Home{}
	if catTbl, ok := table.RawGetString("categories").(*lua.LTable); ok {
		eachTable(catTbl, func(c *lua.LTable) {
			id, name := getString(c, "id"), getString(c, "name")
			if name == "" {
				return
			}
			if id == "" {
				id = name
			}
			home.Categories = append(home.Categories, source.Category{ID: id, Name: name})
		})
	}
	if listTbl, ok := table.RawGetString("items").(*lua.LTable); ok {
		home.Items = itemsFromTable(listTbl)
	}
	return home
}

func pageFromTable(table *lua.LTable) source.ItemPage {
	page := source.ItemPage{
		Page:      getInt(table, "page"),
		PageCount: getInt(table, "pagecount"),
		Limit:     getInt(table, "limit"),
		Total:     getInt(table, "total"),
	}
	if listTbl, ok := table.RawGetString("items").(*lua.LTable); ok {
		page.Items = itemsFromTable(listTbl)
	}
	return page
}

func playbackFromTable(table *lua.LTable) source.Playback {
	return source.Playback{
		URL:       getString(table, "url"),
		Headers:   getStringMap(table, "headers"),
		Parse:     getBool(table, "parse"),
		Sniff:     getBool(table, "sniff"),
		DRMKey:    getString(table, "drm_key"),
		DRMScheme: getString(table, "drm_scheme"),
		Elapsed:   getInt(table, "elapsed"),
	}
}
