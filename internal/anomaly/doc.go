// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package anomaly scores user behavior against the user's own history.

Four tests are provided as pure functions over already-fetched data:

  - Movement compares the movement features of a recent trace with the
    features of equally sized windows of the user's history.
  - Speed compares a reported speed with the user's speed distribution, or
    with fixed limits when the history is short.
  - RouteDeviation measures the distance to the nearest common route.
  - TimeOfDay compares a position with where the user usually is at that
    hour.

Each returns a models.AnomalyResult. A confidence of 0 means no judgment
was possible.

Detector wraps the tests with data-source lookups, prediction recording and
an incident-level isolation forest that can be retrained at runtime. The
trained model is swapped atomically so concurrent readers never see a
partially trained state.
*/
package anomaly
