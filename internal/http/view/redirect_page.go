package view

import (
	"bytes"
	"html/template"
	"time"
)

// DeepLinkPageData provides the dynamic fields required by the deep link template.
type DeepLinkPageData struct {
	Title         string
	PrimaryURL    string
	SecondaryURL  string
	FallbackURL   string
	RetryDelay    time.Duration
	FallbackDelay time.Duration
}

type deepLinkPageModel struct {
	DeepLinkPageData
	RetryDelayMillis    int64
	FallbackDelayMillis int64
}

// iOS offers no "app not installed" signal to scripts, so the page walks a
// timer cascade: primary scheme, secondary scheme while still visible, then
// the web fallback.
var deepLinkPageTmpl = template.Must(template.New("deep_link_page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<meta name="robots" content="noindex, nofollow" />
	<title>{{.Title}}</title>
	<style>
		:root {
			--bg: #f5f6f8;
			--card: #ffffff;
			--text: #1c1f26;
			--muted: #6b7280;
			--accent: #ffdd2d;
			font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		body {
			margin: 0;
			min-height: 100vh;
			display: flex;
			align-items: center;
			justify-content: center;
			background: var(--bg);
			color: var(--text);
		}
		.card {
			background: var(--card);
			border-radius: 18px;
			padding: 32px;
			width: min(420px, 92vw);
			box-shadow: 0 20px 60px rgba(0, 0, 0, 0.08);
			text-align: center;
		}
		p {
			color: var(--muted);
		}
		a.button {
			display: inline-block;
			margin-top: 16px;
			padding: 14px 28px;
			border-radius: 999px;
			background: var(--accent);
			color: var(--text);
			font-weight: 600;
			text-decoration: none;
		}
	</style>
</head>
<body>
	<div class="card">
		<h1>Opening your bank app…</h1>
		<p>If nothing happens, continue the payment in the browser.</p>
		<a class="button" href="{{.FallbackURL}}">Continue in browser</a>
	</div>
	<script>
		(function() {
			var primary = {{.PrimaryURL}};
			var secondary = {{.SecondaryURL}};
			var fallback = {{.FallbackURL}};
			window.location = primary;
			setTimeout(function() {
				if (!document.hidden) {
					window.location = secondary;
				}
			}, {{.RetryDelayMillis}});
			setTimeout(function() {
				window.location = fallback;
			}, {{.FallbackDelayMillis}});
		})();
	</script>
</body>
</html>
`))

// RenderDeepLinkPage expands the deep link page template with the provided data.
func RenderDeepLinkPage(data DeepLinkPageData) (string, error) {
	if data.Title == "" {
		data.Title = "Opening payment..."
	}
	var buf bytes.Buffer
	err := deepLinkPageTmpl.Execute(&buf, deepLinkPageModel{
		DeepLinkPageData:    data,
		RetryDelayMillis:    data.RetryDelay.Milliseconds(),
		FallbackDelayMillis: data.FallbackDelay.Milliseconds(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
