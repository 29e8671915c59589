// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package services adapts SafePulse components to suture.Service.

Each wrapper translates a component's lifecycle into Serve(ctx) error and
names itself through fmt.Stringer for supervisor logs:

  - APIServerService: ListenAndServe with a bounded drain on cancel.
  - RetrainService: retrains every model on an interval, optionally once at startup.
  - AuditCleanupService: deletes prediction events past their retention.
  - EventBusService: runs the watermill router behind the prediction audit bus.

Components are taken through small interfaces (HTTPServer, Retrainer,
AuditCleaner, EventRouter) so the wrappers can be tested with fakes.

	tree.Add(supervisor.LayerAPI, services.NewAPIServerService(server, services.APIServerConfig{Addr: server.Addr}, logger))
	tree.Add(supervisor.LayerMessaging, services.NewRetrainService(coordinator, services.RetrainServiceConfig{
	    Interval: cfg.Models.RetrainInterval(),
	}, logger))
*/
package services
