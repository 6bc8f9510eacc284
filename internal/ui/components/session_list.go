// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
	"github.com/jeranaias/nebula-tui/internal/util"
)

// SessionList renders the session picker. cursor indexes sessions; the
// current session carries a '*' marker. Only the window around cursor that
// fits in height lines is drawn.
func SessionList(theme *styles.Theme, sessions []model.Session, currentID string, cursor, width, height int) string {
	if len(sessions) == 0 {
		return theme.SessionMeta.Render("No sessions yet. Ask something to start one.")
	}
	start, end := window(len(sessions), cursor, height)

	lines := make([]string, 0, end-start+1)
	lines = append(lines, theme.PanelTitle.Render(fmt.Sprintf("Sessions (%d)", len(sessions))))
	for i := start; i < end; i++ {
		s := sessions[i]
		marker := "  "
		if s.ID == currentID {
			marker = "* "
		}
		meta := fmt.Sprintf(" %s, %d msgs", s.Mode, len(s.Messages))
		title := util.FitWidth(s.Title, max(width-len(meta)-6, 8))
		line := marker + util.PadWidth(title, max(width-len(meta)-6, 8)) + theme.SessionMeta.Render(meta)
		if i == cursor {
			lines = append(lines, theme.SessionItemSelected.Render(line))
		} else {
			lines = append(lines, theme.SessionItem.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

// window returns the [start, end) range of n items that keeps cursor visible
// in height rows (one row is the title).
func window(n, cursor, height int) (int, int) {
	rows := height - 1
	if rows <= 0 || rows >= n {
		return 0, n
	}
	start := cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}
