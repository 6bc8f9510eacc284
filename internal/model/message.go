// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Nebula"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one turn of a conversation. Assistant content is markdown.
// Messages are never edited after they are appended to a session.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Citations []string  `json:"citations,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserMessage creates a user message for query.
func NewUserMessage(query string) Message {
	return Message{
		ID:        NewID(),
		Role:      RoleUser,
		Content:   query,
		CreatedAt: time.Now(),
	}
}

// NewAssistantMessage creates a finished answer with its citation URLs.
func NewAssistantMessage(answer string, citations []string) Message {
	var cites []string
	if len(citations) > 0 {
		cites = append([]string(nil), citations...)
	}
	return Message{
		ID:        NewID(),
		Role:      RoleAssistant,
		Content:   answer,
		Citations: cites,
		CreatedAt: time.Now(),
	}
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	if m.Citations != nil {
		m.Citations = append([]string(nil), m.Citations...)
	}
	return m
}

// NewID returns a time-ordered unique identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
