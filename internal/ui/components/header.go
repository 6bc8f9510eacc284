// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
	"github.com/jeranaias/nebula-tui/internal/util"
)

// Brand is the product name shown in the header.
const Brand = "Nebula"

// Header renders the top line: brand, then the current session title.
func Header(theme *styles.Theme, sess *model.Session, width int) string {
	title := "New research"
	if sess != nil {
		title = sess.Title
	}
	brand := theme.HeaderBrand.Render(Brand)
	room := width - lipgloss.Width(brand) - 5
	line := brand
	if room > 0 {
		line += "  " + theme.HeaderTitle.Render(util.FitWidth(title, room))
	}
	return theme.Header.Width(width).Render(line)
}
