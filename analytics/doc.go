// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package analytics records funnel events without slowing down requests.

	events := analytics.NewLogger(store)
	defer events.Close(ctx)

	events.LogEvent(models.EventVoteSubmitted, deviceID, sessionID, ip, nil)

Events go through a buffered channel to a single writer goroutine. A full
buffer drops the event, and a failed insert is logged and forgotten.
Nothing in the vote path waits on analytics.
*/
package analytics
