// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package audit records every prediction SafePulse serves.

Each scoring call produces an Event carrying the prediction type, the request
input, the result and the model version that produced it. Events travel over
an in-process watermill topic ("predictions") to a subscriber that hands them
to the Logger, which buffers them and writes them asynchronously to a Store.

Recording is fire-and-forget: a full buffer or a failing store drops the
event with a warning and never fails the prediction that produced it.

Stores:
  - DuckDBStore: the prediction_events table in the main database
  - MemoryStore: bounded in-memory store for tests and demos

Retention cleanup deletes events older than the configured number of days on
a fixed interval.
*/
package audit
