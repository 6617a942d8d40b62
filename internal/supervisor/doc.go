// Linkage - Metadata Similarity Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/linkage

/*
Package supervisor runs the long-lived services of `linkage serve` under a
suture v4 supervisor tree.

Tree Structure:

	linkage (root)
	├── pipeline-layer
	│   └── pipeline-service   scheduled and on-demand pipeline runs
	└── api-layer
	    └── http-server        autocomplete, linkage and run history API

Each layer is its own supervisor, so a pipeline run that panics is restarted
with backoff inside pipeline-layer while the HTTP server keeps serving the
linkages already in the store.

Failure Handling:

Services return an error to be restarted, suture.ErrDoNotRestart to stop for
good, or ctx.Err() on shutdown. Restarts are throttled by FailureThreshold,
FailureDecay and FailureBackoff; the defaults match suture's own.

Supervisor events are logged through sutureslog, bridged to zerolog with
logging.NewSlogLogger.

Usage:

	tree := supervisor.NewTree(logging.NewSlogLogger(logger), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddPipelineService(pipelineSvc)
	tree.AddAPIService(services.NewHTTPServerService(server, timeout, logger))
	err := tree.Serve(ctx)

See the services subpackage for the service implementations.
*/
package supervisor
