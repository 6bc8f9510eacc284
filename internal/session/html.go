// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/nebula-tui/internal/model"
)

// =============================================================================
// HTML EXPORT
// =============================================================================

var (
	codeBlockRe   = regexp.MustCompile("```([a-zA-Z0-9_+-]*)\n([\\s\\S]*?)```")
	inlineCodeRe  = regexp.MustCompile("`([^`\n]+)`")
	boldRe        = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	// placeholderRe matches a paragraph holding only an extracted code block.
	placeholderRe = regexp.MustCompile("^\x00[0-9]+\x00$")
)

// ExportHTML renders a session as a standalone HTML page. theme is "dark" or
// "light"; anything else is treated as dark.
func ExportHTML(s model.Session, theme string) []byte {
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("  <meta charset=\"UTF-8\">\n")
	sb.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("  <title>%s</title>\n", html.EscapeString(s.Title)))
	sb.WriteString("  <meta name=\"generator\" content=\"nebula\">\n")
	sb.WriteString(fmt.Sprintf("  <meta name=\"date\" content=\"%s\">\n", s.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n<div class=\"container\">\n", theme))

	sb.WriteString("<header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("  <h1>%s</h1>\n", html.EscapeString(s.Title)))
	sb.WriteString("  <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("    <span><strong>Mode:</strong> %s</span>\n", html.EscapeString(string(s.Mode))))
	sb.WriteString(fmt.Sprintf("    <span><strong>Created:</strong> %s</span>\n", s.CreatedAt.Format("Jan 2, 2006 15:04")))
	sb.WriteString(fmt.Sprintf("    <span><strong>Messages:</strong> %d</span>\n", len(s.Messages)))
	sb.WriteString("  </div>\n</header>\n")

	sb.WriteString("<main class=\"conversation\">\n")
	for _, m := range s.Messages {
		writeHTMLMessage(&sb, m)
	}
	sb.WriteString("</main>\n")

	sb.WriteString(fmt.Sprintf("<footer class=\"footer\">Session <code>%s</code></footer>\n", html.EscapeString(s.ID)))
	sb.WriteString("</div>\n</body>\n</html>\n")
	return []byte(sb.String())
}

func writeHTMLMessage(sb *strings.Builder, m model.Message) {
	sb.WriteString(fmt.Sprintf("<section class=\"message %s-message\">\n", m.Role))
	sb.WriteString(fmt.Sprintf("  <div class=\"message-header\"><span class=\"role\">%s</span> <span class=\"timestamp\">%s</span></div>\n",
		html.EscapeString(m.Role.DisplayName()), m.CreatedAt.Format("15:04")))
	sb.WriteString("  <div class=\"message-content\">\n")
	sb.WriteString(formatHTMLContent(m.Content))
	sb.WriteString("\n  </div>\n")

	if len(m.Citations) > 0 {
		sb.WriteString("  <ol class=\"sources\">\n")
		for _, c := range m.Citations {
			esc := html.EscapeString(c)
			if strings.HasPrefix(c, "http://") || strings.HasPrefix(c, "https://") {
				sb.WriteString(fmt.Sprintf("    <li><a href=\"%s\" rel=\"noopener noreferrer\">%s</a></li>\n", esc, esc))
			} else {
				sb.WriteString(fmt.Sprintf("    <li>%s</li>\n", esc))
			}
		}
		sb.WriteString("  </ol>\n")
	}
	sb.WriteString("</section>\n")
}

// formatHTMLContent escapes content and applies the small markdown subset
// answers commonly use: fenced code, inline code, bold and paragraphs.
func formatHTMLContent(content string) string {
	content = html.EscapeString(content)

	var blocks []string
	content = codeBlockRe.ReplaceAllStringFunc(content, func(match string) string {
		parts := codeBlockRe.FindStringSubmatch(match)
		label := ""
		if parts[1] != "" {
			label = fmt.Sprintf("<div class=\"code-lang\">%s</div>", parts[1])
		}
		blocks = append(blocks, fmt.Sprintf("<div class=\"code-block\">%s<pre><code>%s</code></pre></div>",
			label, strings.TrimRight(parts[2], "\n")))
		return fmt.Sprintf("\x00%d\x00", len(blocks)-1)
	})

	var out []string
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		switch {
		case para == "":
			continue
		case placeholderRe.MatchString(para):
			out = append(out, para)
			continue
		}
		para = inlineCodeRe.ReplaceAllString(para, "<code>$1</code>")
		para = boldRe.ReplaceAllString(para, "<strong>$1</strong>")
		out = append(out, "<p>"+strings.ReplaceAll(para, "\n", "<br>\n")+"</p>")
	}

	result := strings.Join(out, "\n")
	for i, b := range blocks {
		result = strings.Replace(result, fmt.Sprintf("\x00%d\x00", i), b, 1)
	}
	return result
}

const htmlCSS = `  <style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    .dark-theme {
      --bg: #1a1b26; --panel: #24283b; --raised: #414868;
      --text: #c0caf5; --muted: #565f89; --accent: #7aa2f7; --user: #1f2335;
    }
    .light-theme {
      --bg: #ffffff; --panel: #f7f8fa; --raised: #e1e4e8;
      --text: #24292e; --muted: #6a737d; --accent: #0366d6; --user: #f0f3f6;
    }
    body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6;
      color: var(--text); background: var(--bg); padding: 20px; }
    .container { max-width: 900px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; }
    .header { padding: 28px 32px; background: var(--raised); }
    .header h1 { font-size: 26px; margin-bottom: 12px; }
    .metadata { display: flex; flex-wrap: wrap; gap: 16px; font-size: 14px; color: var(--muted); }
    .conversation { padding: 24px 32px; }
    .message { margin-bottom: 24px; padding: 16px 20px; border-radius: 8px; }
    .user-message { background: var(--user); border-left: 4px solid var(--accent); }
    .message-header { font-size: 13px; color: var(--muted); margin-bottom: 8px; }
    .role { font-weight: 600; color: var(--accent); }
    .message-content p { margin-bottom: 12px; }
    .code-block { margin: 12px 0; background: var(--bg); border-radius: 6px; overflow-x: auto; }
    .code-lang { font-size: 12px; color: var(--muted); padding: 6px 12px 0; }
    pre { padding: 12px; font-family: "SF Mono", Menlo, monospace; font-size: 14px; }
    code { font-family: "SF Mono", Menlo, monospace; }
    .sources { margin: 12px 0 0 24px; font-size: 14px; }
    .sources a { color: var(--accent); word-break: break-all; }
    .footer { padding: 16px 32px; font-size: 12px; color: var(--muted); border-top: 1px solid var(--raised); }
  </style>
`
