// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package models defines the data structures shared by the SafePulse analytics
components, the data source and the HTTP layer.

Model Categories:

 1. Observations (immutable, externally sourced):
    - LocationSample: one GPS fix for a user
    - Incident: a reported safety incident

 2. Derived results:
    - AnomalyResult: a single anomaly judgment with confidence and reason
    - RiskPrediction / AreaRiskPrediction: bounded risk score with level
    - Hotspot, TrendReport: spatial and temporal aggregations
    - ResponsePlan: ranked emergency resources

 3. API envelope:
    - APIResponse, Metadata, APIError

Severity weights ({critical:1.0, high:0.8, medium:0.5, low:0.2}) are defined
once here and used by every scorer.
*/
package models
