package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinContentLength is the text length below which a page is assumed to be
// rendered client-side.
const MinContentLength = 500

// settleDelay lets client-side frameworks populate the DOM after load.
const settleDelay = 2 * time.Second

// NeedsRendering reports whether a statically fetched page yielded too
// little text to be useful.
func NeedsRendering(text string) bool {
	return len(strings.TrimSpace(text)) < MinContentLength
}

// Render loads pageURL in headless Chrome and returns the DOM as HTML.
// Chrome or Chromium must be installed.
func Render(ctx context.Context, pageURL string, timeout time.Duration) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(DefaultUserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return "", &Error{URL: pageURL, Message: "headless render", Cause: err}
	}
	if strings.TrimSpace(html) == "" {
		return "", &Error{URL: pageURL, Message: fmt.Sprintf("empty DOM after %s", timeout)}
	}
	return html, nil
}
