// Package rulebased implements the generic rule-driven HTML adapter.
package rulebased

import "github.com/ovod-cli/ovod/site"

// Mac-theme default rules. The bulk of rule-based sites run stock MacCMS
// templates, so a sparse ext blob still works: every unset rule falls back
// to a multi-candidate chain covering the common theme variants.
var macDefaults = site.RuleSet{
	HomeURL:     "/",
	CategoryURL: "/vod/type/id/{tid}/page/{page}.html",
	DetailURL:   "/vod/detail/id/{id}.html",
	SearchURL:   "/vod/search/wd/{wd}.html",

	CategoryRule:     "ul.nav li || div.head-more a || ul.myui-header__menu li",
	CategoryNameRule: "a || Text",
	CategoryIDRule:   "a@href",

	ListRule:   "ul.myui-vodlist li || div.module-item || ul.stui-vodlist li || div.vodlist li",
	NameRule:   "a@title || h4 a || div.module-item-title a",
	IDRule:     "a@href",
	PicRule:    "a@data-original || img@data-src || img@data-original || img@src",
	RemarkRule: "span.pic-text || div.module-item-note || span.pic_text",
	PageRule:   "ul.myui-page li:last-child a@href || div.page a:last-child@href",

	TitleRule:    "h1.title || h1 || div.module-info-heading h1",
	YearRule:     "div.module-info-tag-link a || p.data a || span.year",
	AreaRule:     "div.module-info-item:contains(地区) a || p.data:contains(地区)",
	ActorRule:    "div.module-info-item:contains(主演) a || p.data:contains(主演)",
	DirectorRule: "div.module-info-item:contains(导演) a || p.data:contains(导演)",
	ContentRule:  "div.module-info-introduction-content || span.detail-content || div.content",

	FlagRule:        "div.module-play-list || div.playlist || ul.stui-content__playlist",
	FlagNameRule:    "div.module-tab-item span || h3.play_from || div.playlist-tab a",
	EpisodeRule:     "a",
	EpisodeNameRule: "span || Text",
	EpisodeURLRule:  "@href",

	PlayerRule: "iframe@src || video@src || div.player@data-url",
}

// applyDefaults fills every empty rule with its Mac default.
func applyDefaults(rs *site.RuleSet) {
	def := macDefaults
	fill := func(dst *string, fallback string) {
		if *dst == "" {
			*dst = fallback
		}
	}

	fill(&rs.HomeURL, def.HomeURL)
	fill(&rs.CategoryURL, def.CategoryURL)
	fill(&rs.DetailURL, def.DetailURL)
	fill(&rs.SearchURL, def.SearchURL)

	fill(&rs.CategoryRule, def.CategoryRule)
	fill(&rs.CategoryNameRule, def.CategoryNameRule)
	fill(&rs.CategoryIDRule, def.CategoryIDRule)

	fill(&rs.ListRule, def.ListRule)
	fill(&rs.NameRule, def.NameRule)
	fill(&rs.IDRule, def.IDRule)
	fill(&rs.PicRule, def.PicRule)
	fill(&rs.RemarkRule, def.RemarkRule)
	fill(&rs.PageRule, def.PageRule)

	fill(&rs.TitleRule, def.TitleRule)
	fill(&rs.YearRule, def.YearRule)
	fill(&rs.AreaRule, def.AreaRule)
	fill(&rs.ActorRule, def.ActorRule)
	fill(&rs.DirectorRule, def.DirectorRule)
	fill(&rs.ContentRule, def.ContentRule)

	fill(&rs.FlagRule, def.FlagRule)
	fill(&rs.FlagNameRule, def.FlagNameRule)
	fill(&rs.EpisodeRule, def.EpisodeRule)
	fill(&rs.EpisodeNameRule, def.EpisodeNameRule)
	fill(&rs.EpisodeURLRule, def.EpisodeURLRule)

	fill(&rs.PlayerRule, def.PlayerRule)
}
