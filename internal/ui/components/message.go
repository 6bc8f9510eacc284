// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// MarkdownRenderer turns an answer into terminal output.
type MarkdownRenderer interface {
	Render(markdown string) (string, error)
}

// GlamourRenderer renders markdown with glamour.
type GlamourRenderer struct {
	r *glamour.TermRenderer
}

// NewGlamourRenderer builds a renderer. style is "auto" or a glamour
// standard style name ("dark", "light", "notty", ...).
func NewGlamourRenderer(style string, wrap int) (*GlamourRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wrap)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &GlamourRenderer{r: r}, nil
}

func (g *GlamourRenderer) Render(markdown string) (string, error) {
	out, err := g.r.Render(markdown)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// PlainRenderer wraps text without interpreting markdown.
type PlainRenderer struct {
	Width int
}

func (p PlainRenderer) Render(markdown string) (string, error) {
	if p.Width <= 0 {
		return markdown, nil
	}
	return wordwrap.String(markdown, p.Width), nil
}

// =============================================================================
// CONVERSATION
// =============================================================================

// Conversation renders messages oldest first. Answers go through md; when it
// fails the raw answer is shown.
func Conversation(theme *styles.Theme, messages []model.Message, md MarkdownRenderer, width int) string {
	if len(messages) == 0 {
		return theme.SessionMeta.Render("Ask a research question to begin. Tab switches fast/thorough mode.")
	}
	blocks := make([]string, 0, len(messages))
	for _, m := range messages {
		blocks = append(blocks, renderMessage(theme, m, md, width))
	}
	return strings.Join(blocks, "\n\n")
}

func renderMessage(theme *styles.Theme, m model.Message, md MarkdownRenderer, width int) string {
	stamp := theme.Timestamp.Render(m.CreatedAt.Local().Format("15:04"))
	if m.Role == model.RoleUser {
		return theme.UserLabel.Render(m.Role.DisplayName()) + " " + stamp + "\n" +
			theme.UserText.Render(wordwrap.String(m.Content, max(width-4, 10)))
	}

	body, err := md.Render(m.Content)
	if err != nil {
		body = m.Content
	}
	var sb strings.Builder
	sb.WriteString(theme.AssistantLabel.Render(m.Role.DisplayName()) + " " + stamp + "\n")
	sb.WriteString(body)
	if len(m.Citations) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(theme.PanelTitle.Render("Sources"))
		for i, c := range m.Citations {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, theme.Citation.Render(c)))
		}
	}
	return sb.String()
}
