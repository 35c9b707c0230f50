// Package icon provides a flexible multi-variant rendering engine for UI symbols and feedback indicators.
package icon

// Icon identifies a symbol in the global registry.
type Icon int

const (
	Success Icon = iota
	Fail
	Progress
	Question
	Lua
)

// icons is the global registry mapping each Icon to its per-variant glyphs.
var icons = map[Icon]*iconDef{
	Success: {
		emoji:   "✅",
		nerd:    "",
		plain:   "[ok]",
		kaomoji: "(ᵔ◡ᵔ)",
		squares: "🟩",
	},
	Fail: {
		emoji:   "❌",
		nerd:    "",
		plain:   "[!]",
		kaomoji: "(╯°□°)╯",
		squares: "🟥",
	},
	Progress: {
		emoji:   "⏳",
		nerd:    "",
		plain:   "...",
		kaomoji: "(๑•̀ㅂ•́)و",
		squares: "🟨",
	},
	Question: {
		emoji:   "❓",
		nerd:    "",
		plain:   "[?]",
		kaomoji: "(・・?)",
		squares: "🟦",
	},
	Lua: {
		emoji:   "🌙",
		nerd:    "",
		plain:   "[lua]",
		kaomoji: "(=^･ω･^=)",
		squares: "🟪",
	},
}
