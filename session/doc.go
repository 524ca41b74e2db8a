// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session hosts live tally views.

A Session owns one state.Store and three producers that write to it only
through Dispatch:

  - Loader: the bootstrap read (active poll, options, period counts, the
    identity's own vote). Each step fails independently.
  - Reconciler: applies vote, poll and option change notifications.
    Vote changes become +1/-1 deltas for the displayed period only; a
    newly active poll is a hard reset; option changes re-read the list.
  - Submitter: the cast-vote lifecycle. No count is incremented
    optimistically; the voter's own vote is counted when its change
    notification arrives.

Manager keeps one Session per voter identity for the HTTP layer.
*/
package session
