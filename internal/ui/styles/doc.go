// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the Nebula TUI.

Colors are Lip Gloss AdaptiveColors so the same palette works on light and
dark terminals. Theme bundles the styles used by the chat screen; NewTheme
detects the terminal's color profile with termenv.

# Colors (colors.go)

  - Purple - assistant messages, selections
  - Cyan - brand, user messages, prompts
  - Emerald - completed steps, done state
  - Amber - autocorrect hints, stopped state
  - Rose - errors

Status messages always carry an ASCII indicator ([OK], [X], [!], [i]) next to
the color so they read the same without color.

# Progress (animations.go)

RenderProgressBar draws a plain-text bar for non-interactive output. The
interactive screen uses the bubbles progress model instead.
*/
package styles
