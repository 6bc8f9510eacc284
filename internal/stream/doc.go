// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream talks to the research assistant's server-sent events endpoint.
//
// A request is GET {stream_url}?question=<q>&mode=fast|thorough. The response
// is a sequence of named events whose data is a JSON object:
//
//	event: plan
//	data: {"intent":"compare","steps":["Search","Read","Synthesize"]}
//
// Client.Open returns immediately with a Conn; the request runs in a goroutine
// that delivers events on Conn.Events and closes the channel when the response
// ends. Transport failures are delivered as a synthesized "error" event.
// Conn.Close cancels the request and waits for the goroutine to exit.
package stream
