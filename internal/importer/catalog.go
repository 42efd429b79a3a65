package importer

import (
	"maps"

	"github.com/bnema/webview-adblock/internal/models"
)

// popularSources is the catalog of well-known public hosts subscriptions
var popularSources = []models.CatalogSource{{
	Name:        "StevenBlack Unified Hosts",
	URL:         "https://raw.githubusercontent.com/StevenBlack/hosts/master/hosts",
	Description: "Consolidated adware and malware hosts from several curated lists",
	Descriptions: map[string]string{
		"zh": "整合多个来源的广告与恶意软件域名",
	},
}, {
	Name:        "AdAway",
	URL:         "https://adaway.org/hosts.txt",
	Description: "Mobile ad servers, maintained by the AdAway project",
	Descriptions: map[string]string{
		"zh": "AdAway 项目维护的移动广告服务器列表",
	},
}, {
	Name:        "Peter Lowe's Ad and Tracking Server List",
	URL:         "https://pgl.yoyo.org/adservers/serverlist.php?hostformat=hosts&showintro=0&mimetype=plaintext",
	Description: "Long-running list of ad and tracking servers",
	Descriptions: map[string]string{
		"zh": "长期维护的广告与跟踪服务器列表",
	},
}, {
	Name:        "1Hosts Lite",
	URL:         "https://raw.githubusercontent.com/badmojr/1Hosts/master/Lite/hosts.txt",
	Description: "Balanced list that avoids breaking common sites",
	Descriptions: map[string]string{
		"zh": "兼顾拦截效果与网站兼容性的精简列表",
	},
}, {
	Name:        "AdGuard DNS Filter",
	URL:         "https://adguardteam.github.io/AdGuardSDNSFilter/Filters/filter.txt",
	Description: "AdGuard's DNS-level filter in AdBlock syntax",
	Descriptions: map[string]string{
		"zh": "AdGuard 的 DNS 级过滤规则（AdBlock 语法）",
	},
}, {
	Name:        "anudeepND Ad Servers",
	URL:         "https://raw.githubusercontent.com/anudeepND/blacklist/master/adservers.txt",
	Description: "Ad server domains collected from real traffic",
	Descriptions: map[string]string{
		"zh": "从真实流量中收集的广告服务器域名",
	},
}, {
	Name:        "HaGeZi Light",
	URL:         "https://raw.githubusercontent.com/hagezi/dns-blocklists/main/domains/light.txt",
	Description: "Minimal ads, tracking and metrics list in bare-domain format",
	Descriptions: map[string]string{
		"zh": "纯域名格式的轻量广告与跟踪列表",
	},
}}

// PopularSources returns a deep copy of the built-in subscription catalog
func PopularSources() []models.CatalogSource {
	sources := make([]models.CatalogSource, len(popularSources))
	for i, s := range popularSources {
		s.Descriptions = maps.Clone(s.Descriptions)
		sources[i] = s
	}
	return sources
}
