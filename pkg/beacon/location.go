package beacon

import (
	"net/url"
	"strings"
)

// Location describes the page the pipeline runs on. It is the source of
// the page defaults every message carries under context.page.
type Location struct {
	// Href is the full page URL.
	Href string `yaml:"href" json:"href"`
	// Referrer is the URL of the previous page.
	Referrer string `yaml:"referrer" json:"referrer"`
	// Title is the page title.
	Title string `yaml:"title" json:"title"`
	// Canonical is the page's canonical URL, if it declares one.
	Canonical string `yaml:"canonical" json:"canonical"`
}

// PageDefaults returns the default page properties for loc: path,
// referrer, search, title and url. A canonical URL takes precedence over
// Href for path and url; the url never carries a fragment.
func (loc Location) PageDefaults() map[string]any {
	href, _ := url.Parse(loc.Href)
	if href == nil {
		href = &url.URL{}
	}
	search := ""
	if href.RawQuery != "" {
		search = "?" + href.RawQuery
	}

	return map[string]any{
		"path":     loc.path(href),
		"referrer": loc.Referrer,
		"search":   search,
		"title":    loc.Title,
		"url":      loc.url(search),
	}
}

func (loc Location) path(href *url.URL) string {
	if loc.Canonical == "" {
		return href.Path
	}
	canon, err := url.Parse(loc.Canonical)
	if err != nil {
		return href.Path
	}
	if !strings.HasPrefix(canon.Path, "/") {
		return "/" + canon.Path
	}
	return canon.Path
}

func (loc Location) url(search string) string {
	if loc.Canonical != "" {
		if strings.Contains(loc.Canonical, "?") {
			return loc.Canonical
		}
		return loc.Canonical + search
	}
	u, _, _ := strings.Cut(loc.Href, "#")
	return u
}
