// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/stream"
	"github.com/jeranaias/nebula-tui/internal/ui/styles"
	"github.com/jeranaias/nebula-tui/internal/util"
)

// SummarizeTrace returns a one-line description of a trace entry. Payloads
// that do not decode fall back to their compact JSON.
func SummarizeTrace(ev model.TraceEvent) string {
	switch ev.Type {
	case model.TracePlan:
		var p stream.Plan
		if decode(ev.Data, &p) {
			s := fmt.Sprintf("%d steps", len(p.Steps))
			if p.Intent != nil && *p.Intent != "" {
				s = *p.Intent + ", " + s
			}
			return s
		}
	case model.TraceStatus:
		var s stream.Status
		if decode(ev.Data, &s) {
			return s.State
		}
	case model.TraceQueries:
		var q stream.Queries
		if decode(ev.Data, &q) {
			return strings.Join(q.Items, " | ")
		}
	case model.TraceSearch:
		var s stream.Search
		if decode(ev.Data, &s) {
			return fmt.Sprintf("%q: %d results", s.Query, len(s.Results))
		}
	case model.TraceRead:
		var r stream.Read
		if decode(ev.Data, &r) {
			return r.URL
		}
	case model.TraceExtract:
		var e stream.Extract
		if decode(ev.Data, &e) {
			return fmt.Sprintf("%s: %d snippets", e.URL, len(e.Snippets))
		}
	case model.TraceRationale:
		var r stream.Rationale
		if decode(ev.Data, &r) {
			if r.PrelimAnswer != "" {
				return r.PrelimAnswer
			}
			return fmt.Sprintf("%d subgoals, %d factors, %d risks", len(r.Subgoals), len(r.Factors), len(r.Risks))
		}
	case model.TraceError:
		var e stream.Error
		if decode(ev.Data, &e) && e.Message != "" {
			return e.Message
		}
	}
	return util.CollapseWhitespace(string(ev.Data))
}

func decode(data json.RawMessage, v any) bool {
	return len(data) > 0 && json.Unmarshal(data, v) == nil
}

// TraceView renders the newest entries of a trace that fit in height lines.
func TraceView(theme *styles.Theme, events []model.TraceEvent, width, height int) string {
	if len(events) == 0 {
		return theme.SessionMeta.Render("No trace yet.")
	}
	if height > 0 && len(events) > height {
		events = events[len(events)-height:]
	}
	lines := make([]string, len(events))
	for i, ev := range events {
		body := util.FitWidth(SummarizeTrace(ev), max(width-12, 8))
		lines[i] = theme.TraceKind.Render(ev.Type.Label()) + " " + theme.TraceBody.Render(body)
	}
	return strings.Join(lines, "\n")
}
