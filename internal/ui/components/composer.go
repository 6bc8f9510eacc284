// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
	"github.com/jeranaias/nebula-tui/internal/util"
)

// SuggestionHint renders the live autocorrect suggestion under the composer.
func SuggestionHint(theme *styles.Theme, s model.AutocorrectSuggestion, loading bool, width int) string {
	switch {
	case s.SuggestedText != "":
		return theme.Suggestion.Render(util.FitWidth("Did you mean: "+s.SuggestedText+"  (enter to use)", width))
	case loading:
		return theme.Correction.Render("checking spelling...")
	}
	return ""
}

// CorrectionNotice tells the user their query was rewritten and how to run
// the original instead.
func CorrectionNotice(theme *styles.Theme, c *model.Correction, width int) string {
	if c == nil {
		return ""
	}
	text := "Searched for \"" + c.Corrected + "\" instead of \"" + c.Original + "\". ctrl+o: search original"
	return theme.Correction.Render(util.FitWidth(text, width))
}
