// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/nebula-tui/internal/model"
	"github.com/jeranaias/nebula-tui/internal/util"
)

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatList renders sessions as a plain-text table. currentID is marked with '*'.
func FormatList(sessions []model.Session, currentID string) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("  " + util.PadWidth("ID", 10) + " " + util.PadWidth("Created", 16) + " " +
		util.PadWidth("Mode", 8) + " " + util.PadWidth("Msgs", 5) + " Title\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")

	for _, s := range sessions {
		marker := "  "
		if s.ID == currentID {
			marker = "* "
		}
		sb.WriteString(marker +
			util.PadWidth(ShortID(s.ID), 10) + " " +
			util.PadWidth(s.CreatedAt.Format("2006-01-02 15:04"), 16) + " " +
			util.PadWidth(string(s.Mode), 8) + " " +
			util.PadWidth(strconv.Itoa(len(s.Messages)), 5) + " " +
			util.FitWidth(s.Title, 40) + "\n")
	}
	return sb.String()
}

// ShortID returns the distinguishing tail of a session id. UUIDv7 ids share
// their timestamp prefix, so the random suffix is the useful part.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// Resolve finds a session by full id or by a unique ShortID/prefix.
func Resolve(sessions []model.Session, ref string) (model.Session, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Session{}, ErrSessionNotFound
	}
	var matches []model.Session
	for _, s := range sessions {
		if s.ID == ref {
			return s, nil
		}
		if strings.HasSuffix(s.ID, ref) || strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return model.Session{}, ErrSessionNotFound
	case 1:
		return matches[0], nil
	default:
		return model.Session{}, fmt.Errorf("session reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportMarkdown renders a session with its messages and numbered citations.
func ExportMarkdown(s model.Session) string {
	var sb strings.Builder
	sb.WriteString("# " + s.Title + "\n\n")
	sb.WriteString("- Session: `" + s.ID + "`\n")
	sb.WriteString("- Mode: " + string(s.Mode) + "\n")
	sb.WriteString("- Created: " + s.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range s.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.CreatedAt.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
		if len(msg.Citations) > 0 {
			sb.WriteString("Sources:\n\n")
			for i, url := range msg.Citations {
				sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, url))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("---\n\n")
	}
	return sb.String()
}

// ExportJSON returns the session as indented JSON.
func ExportJSON(s model.Session) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
