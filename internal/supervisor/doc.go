// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

/*
Package supervisor runs the long-lived SafePulse services under suture v4.

The tree isolates failures by layer:

	RootSupervisor ("safepulse")
	├── DataSupervisor ("data-layer")
	│   └── AuditCleanupService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EventBusService (prediction audit bus)
	│   └── RetrainService
	└── APISupervisor ("api-layer")
	    └── APIServerService

Crashed services restart with backoff. Cancelling the context passed to
Serve stops every layer, each service getting TreeConfig.ShutdownTimeout to
return. Supervisor events are logged through sutureslog, which accepts the
zerolog-backed slog logger from the logging package:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	tree.Add(LayerAPI, services.NewAPIServerService(server, services.APIServerConfig{Addr: server.Addr}, logger))
	err = tree.Serve(ctx)

Service wrappers live in the services subpackage.
*/
package supervisor
