// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the nebula packages.
//
// # Key Functions
//
// Text:
//   - CollapseWhitespace: folds runs of whitespace into single spaces
//   - TruncateRunes: rune-safe truncation with ellipsis
//   - FitWidth: display-width aware truncation for terminal columns
//
// Files:
//   - AtomicWriteFile: crash-safe file replacement with fsync
//
// # Usage
//
//	title := util.TruncateRunesNoEllipsis(util.CollapseWhitespace(q), 64)
//	row := util.FitWidth(title, 30)
//	err := util.AtomicWriteFile(path, data, 0600)
package util
