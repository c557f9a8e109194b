package digest

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Skeleton is a universal {kind, title, items[], excerpt} shape that every
// fetched page or search result normalizes to (spec §4.5, third paragraph),
// so the prompt assembler's downstream consumers learn one query pattern
// regardless of source.
type Skeleton struct {
	Kind    string           `json:"kind"`
	Title   string           `json:"title,omitempty"`
	Items   []map[string]any `json:"items,omitempty"`
	Excerpt string           `json:"excerpt,omitempty"`
}

// ToJSON renders the compact wire form, omitting empty fields.
func (s Skeleton) ToJSON() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

const (
	serpMaxItems    = 12
	articleMaxItems = 10
	serpTitleLen    = 100
	serpURLLen      = 300
	articleHeadLen  = 80
	articleContentLen = 200
	rawExcerptLen   = 2000
	articleRawExcerptLen = 800
	noHeadingExcerptLen  = 1500
)

var (
	serpLinkPattern = regexp.MustCompile(`\[([^\]]{2,})\]\((https?://[^)]+)\)`)
	headingPattern  = regexp.MustCompile(`(?m)^(#{1,3})\s+(.+)$`)
	protocolPattern = regexp.MustCompile(`^https?://(www\.)?`)
	fragmentPattern = regexp.MustCompile(`[#?].*`)
	dashPattern     = regexp.MustCompile(`[-_]`)
	blankRunPattern = regexp.MustCompile(`\n{3,}`)
	spaceRunPattern = regexp.MustCompile(` {2,}`)

	googleInternalDomains = []string{"google.com", "gstatic.com", "googleapis.com"}
	uselessTitles         = map[string]bool{
		"read more": true, "click here": true, "learn more": true,
		"see more": true, "view": true, "link": true,
	}

	// noiseDomains are link-farm and ad-tracking domains that add no signal
	// to a SERP skeleton even when they slip past the Google-internal filter.
	noiseDomains = []string{
		"doubleclick.net", "googlesyndication.com", "googleadservices.com",
		"facebook.com/tr", "amazon-adsystem.com",
	}
)

// ExtractSERPSkeleton turns a markdown-rendered search-results page into
// item records {t: title, u: url, p: position}, deduping by base URL and
// deriving a title from the URL when the link text is a generic phrase.
func ExtractSERPSkeleton(markdown, query string) Skeleton {
	var items []map[string]any
	seen := map[string]bool{}

	for _, match := range serpLinkPattern.FindAllStringSubmatch(markdown, -1) {
		rawTitle, url := match[1], match[2]

		if containsAnyDomain(url, googleInternalDomains) || containsAnyDomain(url, noiseDomains) {
			continue
		}
		baseURL := stripFragmentAndQuery(url)
		if seen[baseURL] {
			continue
		}

		title := strings.TrimSpace(rawTitle)
		if uselessTitles[strings.ToLower(title)] || len(title) < 4 {
			title = titleFromURL(url)
		}

		seen[baseURL] = true
		items = append(items, map[string]any{
			"t": truncate(title, serpTitleLen),
			"u": truncate(url, serpURLLen),
			"p": len(items) + 1,
		})

		if len(items) >= serpMaxItems {
			break
		}
	}

	title := "search"
	if query != "" {
		title = truncate(query, serpTitleLen)
	}

	return Skeleton{Kind: "serp", Title: title, Items: items}
}

func stripFragmentAndQuery(url string) string {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		url = url[:i]
	}
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}
	return url
}

func containsAnyDomain(url string, domains []string) bool {
	for _, d := range domains {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}

func titleFromURL(url string) string {
	clean := protocolPattern.ReplaceAllString(url, "")
	parts := strings.SplitN(clean, "/", 2)
	domain := parts[0]
	var path string
	if len(parts) > 1 {
		path = parts[1]
	}
	path = fragmentPattern.ReplaceAllString(path, "")
	path = dashPattern.ReplaceAllString(path, " ")
	path = strings.TrimSpace(path)
	if len(path) > 2 {
		return domain + ": " + truncate(path, 50)
	}
	return domain
}

type heading struct {
	pos   int
	level int
	text  string
}

// ExtractArticleSkeleton turns a markdown page into item records
// {h: heading, c: content preview, l: level} keyed by its heading
// structure, falling back to a raw excerpt when no headings are found.
func ExtractArticleSkeleton(markdown, title string) Skeleton {
	var headings []heading
	for _, m := range headingPattern.FindAllStringSubmatchIndex(markdown, -1) {
		level := m[3] - m[2]
		headings = append(headings, heading{
			pos:   m[0],
			level: level,
			text:  strings.TrimSpace(markdown[m[4]:m[5]]),
		})
	}

	if len(headings) == 0 {
		return Skeleton{
			Kind:    "raw",
			Title:   truncate(title, serpTitleLen),
			Excerpt: cleanExcerpt(markdown, noHeadingExcerptLen),
		}
	}

	limit := minInt(len(headings), articleMaxItems)
	var items []map[string]any
	for i := 0; i < limit; i++ {
		h := headings[i]
		endPos := len(markdown)
		if i+1 < len(headings) {
			endPos = headings[i+1].pos
		}
		content := markdown[h.pos:endPos]
		lines := strings.Split(content, "\n")
		if len(lines) > 1 {
			lines = lines[1:]
		} else {
			lines = nil
		}
		preview := strings.TrimSpace(truncate(strings.Join(lines, " "), articleContentLen))
		if preview == "" {
			continue
		}
		items = append(items, map[string]any{
			"h": truncate(h.text, articleHeadLen),
			"c": preview,
			"l": h.level,
		})
	}

	resolvedTitle := truncate(title, serpTitleLen)
	if resolvedTitle == "" {
		resolvedTitle = headings[0].text
	}

	return Skeleton{
		Kind:    "article",
		Title:   resolvedTitle,
		Items:   items,
		Excerpt: cleanExcerpt(markdown, articleRawExcerptLen),
	}
}

func cleanExcerpt(text string, maxChars int) string {
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	text = spaceRunPattern.ReplaceAllString(text, " ")

	if len(text) <= maxChars {
		return text
	}

	truncated := text[:maxChars]
	if lastPeriod := strings.LastIndex(truncated, ". "); float64(lastPeriod) > float64(maxChars)*0.7 {
		return truncated[:lastPeriod+1]
	}
	return truncated + "..."
}

// ExtractSkeleton detects the content shape from a type hint or a quick
// content sniff, and dispatches to the matching extractor.
func ExtractSkeleton(content, contentType, title string) Skeleton {
	lower := strings.ToLower(truncate(content, 2000))

	if contentType == "serp" || strings.Contains(lower, "google search") || strings.Contains(lower, "search results") {
		return ExtractSERPSkeleton(content, title)
	}
	if strings.Contains(content, "# ") {
		return ExtractArticleSkeleton(content, title)
	}
	return Skeleton{
		Kind:    "raw",
		Title:   truncate(title, serpTitleLen),
		Excerpt: cleanExcerpt(content, rawExcerptLen),
	}
}

// QueryHint generates the short line telling the model how to query the
// items array of a stored skeleton without re-reading the whole result.
func QueryHint(s Skeleton) string {
	switch s.Kind {
	case "serp":
		return formatHint("SERP", len(s.Items), "results",
			"SELECT json_extract(value,'$.t') as title, json_extract(value,'$.u') as url "+
				"FROM json_each(result_json,'$.items') LIMIT 12")
	case "article":
		return formatHint("ARTICLE", len(s.Items), "sections",
			"SELECT json_extract(value,'$.h') as heading, json_extract(value,'$.c') as content "+
				"FROM json_each(result_json,'$.items') LIMIT 10")
	default:
		return formatRawHint(len(s.Excerpt))
	}
}

const contextHintMinItems = 2

// ContextHint renders a 3-line scanning aid from a SERP skeleton: an
// emoji-prefixed "domain: title" list, then one URL per line. It reports
// ok=false (no hint) rather than emit a hint with too little signal to be
// worth the tokens — a SERP with fewer than two items, or any other kind
// of skeleton, carries no hint.
func ContextHint(s Skeleton) (string, bool) {
	if s.Kind != "serp" || len(s.Items) < contextHintMinItems {
		return "", false
	}

	var titleLines, urlLines []string
	for _, item := range s.Items {
		title, _ := item["t"].(string)
		url, _ := item["u"].(string)
		if title == "" || url == "" {
			continue
		}
		titleLines = append(titleLines, "🔗 "+domainOf(url)+": "+title)
		urlLines = append(urlLines, url)
	}
	if len(titleLines) < contextHintMinItems {
		return "", false
	}

	return strings.Join(titleLines, "\n") + "\n" + strings.Join(urlLines, "\n"), true
}

func domainOf(url string) string {
	clean := protocolPattern.ReplaceAllString(url, "")
	if i := strings.IndexByte(clean, '/'); i >= 0 {
		clean = clean[:i]
	}
	return clean
}

func formatHint(label string, count int, unit, query string) string {
	return label + ": " + strconv.Itoa(count) + " " + unit + "\n-> " + query
}

func formatRawHint(excerptLen int) string {
	return "RAW: " + strconv.Itoa(excerptLen) + " chars in $.excerpt"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
