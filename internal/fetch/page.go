package fetch

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	maxHeadings    = 20
	maxTextLength  = 8000
	maxMarkdownLen = 12000
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]\d{4}`)
)

// Page is the business-relevant content of one HTML page.
type Page struct {
	Title           string
	MetaDescription string
	Headings        []string
	Emails          []string
	Phones          []string
	SocialLinks     map[Platform]string
	Text            string
	Markdown        string
}

// ExtractPage pulls title, meta description, headings, contact details,
// social profile links and main content out of html.
func ExtractPage(html, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &Page{SocialLinks: map[Platform]string{}}
	page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		page.MetaDescription = strings.TrimSpace(desc)
	} else if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		page.MetaDescription = strings.TrimSpace(desc)
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if h := cleanWhitespace(s.Text()); h != "" {
			page.Headings = append(page.Headings, h)
		}
		return len(page.Headings) < maxHeadings
	})

	emails := map[string]bool{}
	phones := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		switch {
		case strings.HasPrefix(strings.ToLower(href), "mailto:"):
			addr := strings.SplitN(href[len("mailto:"):], "?", 2)[0]
			if addr != "" {
				emails[strings.ToLower(addr)] = true
			}
		case strings.HasPrefix(strings.ToLower(href), "tel:"):
			if num := strings.TrimSpace(href[len("tel:"):]); num != "" {
				phones[num] = true
			}
		default:
			abs := resolve(pageURL, href)
			if p := DetectPlatform(abs); p != PlatformUnknown {
				if _, seen := page.SocialLinks[p]; !seen {
					page.SocialLinks[p] = abs
				}
			}
		}
	})

	// Footers stay: small-business contact details usually live there.
	doc.Find("nav, header, " + noiseSelector).Remove()
	bodyText := cleanWhitespace(doc.Find("body").Text())
	for _, m := range emailPattern.FindAllString(bodyText, -1) {
		emails[strings.ToLower(m)] = true
	}
	for _, m := range phonePattern.FindAllString(bodyText, -1) {
		phones[strings.TrimSpace(m)] = true
	}
	page.Emails = sortedKeys(emails)
	page.Phones = sortedKeys(phones)

	main := mainSelection(doc)
	page.Text = truncate(cleanWhitespace(main.Text()), maxTextLength)
	if mainHTML, err := goquery.OuterHtml(main); err == nil {
		page.Markdown = truncate(ToMarkdown(mainHTML, pageURL), maxMarkdownLen)
	}
	return page, nil
}

// ToMarkdown converts an HTML fragment to markdown. Conversion failures yield "".
func ToMarkdown(html, pageURL string) string {
	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Host
	}
	converter := md.NewConverter(domain, true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func resolve(base, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// noiseSelector matches elements that never carry business content.
const noiseSelector = "script, style, noscript, iframe, svg, .cookie-banner, .cookie-consent, .popup, .modal, .ad, .advertisement"

var contentSelectors = []string{"main", "article", "[role='main']", "#content", ".content", "#main-content", ".main-content"}

func mainSelection(doc *goquery.Document) *goquery.Selection {
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			return selection.First()
		}
	}
	return doc.Find("body")
}

func cleanWhitespace(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
