// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

// Scraper Function Identifiers - these constants define the required global function signatures for Lua site scripts.
const (
	HomeContentFn     = "HomeContent"
	CategoryContentFn = "CategoryContent"
	DetailContentFn   = "DetailContent"
	SearchContentFn   = "SearchContent"
	PlayerContentFn   = "PlayerContent"
)

// SourceTemplate is a Go text/template for scaffolding new Lua site scripts.
const SourceTemplate = `{{ $divider := repeat "-" (plus (max (len .URL) (len .Name) (len .Author) 3) 12) }}{{ $divider }}
-- @name    {{ .Name }}
-- @url     {{ .URL }}
-- @author  {{ .Author }}
-- @license MIT
{{ $divider }}

---@alias category { id: string, name: string }
---@alias item { id: string, name: string, pic: string|nil, remarks: string|nil }
---@alias playback { url: string, parse: boolean|nil, sniff: boolean|nil, headers: table|nil }

----- IMPORTS -----
--- END IMPORTS ---

----- VARIABLES -----
--- END VARIABLES ---

--- Returns the site's top-level categories.
---@return category[]
function HomeContent()
	return {}
end

--- Returns one page of items for a category.
---@param tid string
---@param page number
---@return item[]
function CategoryContent(tid, page)
	return {}
end

--- Returns the fully populated detail record for an item.
---@param id string
---@return item
function DetailContent(id)
	return {}
end

--- Returns items matching a keyword.
---@param keyword string
---@return item[]
function SearchContent(keyword)
	return {}
end

--- Resolves an episode id to a playable entry.
---@param flag string
---@param id string
---@return playback
function PlayerContent(flag, id)
	return {}
end
`
