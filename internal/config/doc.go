// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates nebula's settings.
//
// # Configuration Precedence
//
//   - Environment variables (NEBULA_*)
//   - ~/.nebula/config.toml (or $NEBULA_HOME/config.toml)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	url := cfg.StreamURL()
package config
