package ics

import (
	"net/url"
	"strings"
)

// UTM holds the tracking parameters appended to outbound registration links.
type UTM struct {
	Source   string `yaml:"source" json:"source"`
	Medium   string `yaml:"medium" json:"medium"`
	Campaign string `yaml:"campaign" json:"campaign"`
	Content  string `yaml:"content" json:"content"`
}

// DefaultUTM attributes clicks to the listing site.
func DefaultUTM() UTM {
	return UTM{
		Source:   "onevents.ru",
		Medium:   "website",
		Campaign: "news",
		Content:  "link",
	}
}

// query renders the parameters in fixed order. url.Values.Encode would sort
// them alphabetically.
func (u UTM) query() string {
	pairs := []struct{ key, value string }{
		{"utm_source", u.Source},
		{"utm_medium", u.Medium},
		{"utm_campaign", u.Campaign},
		{"utm_content", u.Content},
	}
	var b strings.Builder
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// Tag appends the UTM parameters to link. Empty or unparsable links and
// links that already carry utm_source= are returned unchanged, so Tag is
// idempotent. A #fragment stays at the end of the link.
func (u UTM) Tag(link string) string {
	q := u.query()
	if link == "" || q == "" || strings.Contains(link, "utm_source=") {
		return link
	}
	if _, err := url.Parse(link); err != nil {
		return link
	}

	base, fragment, hasFragment := strings.Cut(link, "#")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	tagged := base + sep + q
	if hasFragment {
		tagged += "#" + fragment
	}
	return tagged
}
