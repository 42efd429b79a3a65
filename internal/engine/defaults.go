package engine

// whitelist holds hosts that are never blocked.  A request URL containing any
// of them is allowed before any blocking rule is consulted.
var whitelist = []string{
	"translate.googleapis.com",
	"translate.google.com",
	"fonts.googleapis.com",
	"fonts.gstatic.com",
	"ajax.googleapis.com",
	"maps.googleapis.com",
	"www.gstatic.com",
	"recaptcha.net",
	"www.google.com/recaptcha",
	"cdn.jsdelivr.net",
	"cdnjs.cloudflare.com",
	"unpkg.com",
	"code.jquery.com",
}

// defaultHosts are the built-in ad and tracking domains
var defaultHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"google-analytics.com",
	"googletagmanager.com",
	"googletagservices.com",
	"adservice.google.com",
	"admob.com",
	"adcolony.com",
	"applovin.com",
	"applvn.com",
	"unityads.unity3d.com",
	"vungle.com",
	"chartboost.com",
	"inmobi.com",
	"mopub.com",
	"flurry.com",
	"amazon-adsystem.com",
	"adnxs.com",
	"criteo.com",
	"criteo.net",
	"pubmatic.com",
	"rubiconproject.com",
	"openx.net",
	"taboola.com",
	"outbrain.com",
	"scorecardresearch.com",
	"moatads.com",
	"quantserve.com",
	"adsrvr.org",
	"bidswitch.net",
	"casalemedia.com",
	"smartadserver.com",
	"yieldmo.com",
	"hotjar.com",
	"mixpanel.com",
	"app-measurement.com",
	"umeng.com",
	"cnzz.com",
	"mmstat.com",
	"tanx.com",
	"pos.baidu.com",
	"cpro.baidu.com",
	"hm.baidu.com",
	"gdt.qq.com",
	"pangolin-sdk-toutiao.com",
}

// defaultPatterns are the built-in wildcard URL patterns
var defaultPatterns = []string{
	"*/pagead/*",
	"*/adserver/*",
	"*/ads/banner*",
	"*/adview*",
	"*/ad_request*",
	"*/prebid*.js*",
	"*/pixel.gif?*",
	"*/beacon.js*",
}

// Whitelist returns a copy of the hosts exempt from blocking
func Whitelist() []string {
	return append([]string(nil), whitelist...)
}

// DefaultRules returns a copy of the built-in rule set in custom-rule syntax
func DefaultRules() []string {
	rules := make([]string, 0, len(defaultHosts)+len(defaultPatterns))
	for _, h := range defaultHosts {
		rules = append(rules, "||"+h+"^")
	}
	return append(rules, defaultPatterns...)
}
