// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package cache provides the prediction cache used by the HTTP layer.

Route risk, area risk and trend responses are stored in BadgerDB under a key
derived from the endpoint and the normalized request, with a per-entry TTL.
Badger expires entries itself, so there is no cleanup goroutine. The whole
cache is dropped after a model is retrained so no response computed by an
old model outlives it.

A nil *PredictionCache is valid and behaves as a disabled cache: every lookup
misses and every store is discarded.

# Usage

	c, err := cache.Open(cache.Options{TTL: 5 * time.Minute})
	if err != nil {
	    return err
	}
	defer c.Close()

	key := cache.GenerateKey("route-risk", req)
	var result risk.RouteRisk
	if !c.Get(key, &result) {
	    result = predictor.PredictRoute(ctx, req)
	    _ = c.Set(key, result)
	}
*/
package cache
