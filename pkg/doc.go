// Package pkg provides the libraries behind diagramflow, an incremental
// diagram layout engine.
//
// # Overview
//
// A producer (typically a language model) streams a diagram as one JSON
// object holding nodes, edges and groups. diagramflow recovers complete
// records from the partial buffer as it grows, lays each batch out and
// merges it into an existing canvas without moving what is already there.
//
// # Architecture
//
// The data flow for one chunk:
//
//	chunk
//	  ↓
//	[stream]    recover complete records from the buffer
//	  ↓
//	[merge]     namespace ids ([ident]), upsert by id
//	  ↓
//	[layout]    select an engine and place the batch
//	  ↓
//	[compose]   size containers around their children
//	  ↓
//	[collide]   push overlapping siblings apart
//	  ↓
//	[scene]     the updated canvas
//
// [pipeline] drives this per run: it keeps run state in a [session] store,
// throttles full layout passes and caches them in [cache].
//
// # Main Packages
//
// ## Engine
//
// [stream] - Tolerant extraction of complete records from a partial JSON
// buffer.
//
// [ident] - Run tokens and id namespacing, so repeated runs never collide.
//
// [layout] - Engine selection heuristics and the built-in layered, tree and
// grid engines. [layout/dot] adds a Graphviz engine.
//
// [dag] and [dag/transform] - The layered graph model used by the layered
// engine: cycle breaking, layering, dummy nodes and crossing reduction.
//
// [compose] - Nested group layout and container sizing.
//
// [collide] - Iterative sibling overlap resolution.
//
// [merge] - The incremental merge controller.
//
// ## Infrastructure
//
// [pipeline] - The run lifecycle (begin, feed, complete, cancel, save).
//
// [session] - Run state between chunks: memory, file and Redis stores.
//
// [cache] - Layout and preset caching: file, Redis and null backends.
//
// [preset] - Stored diagrams: file and MongoDB stores.
//
// [config] - TOML configuration.
//
// [server] - The HTTP API.
//
// [observability] - Hooks for metrics; [observability/prom] implements them
// with Prometheus.
//
// # Common Workflows
//
// Assemble a payload in one call:
//
//	r := pipeline.NewRunner(nil, nil, nil, logger)
//	step, err := r.Assemble(ctx, payload, pipeline.BeginOptions{}, nil)
//	if err != nil {
//	    return err
//	}
//	scene.WriteScene(step.Scene, os.Stdout)
//
// Feed a stream chunk by chunk:
//
//	step, _ := r.Begin(ctx, pipeline.BeginOptions{Base: canvas})
//	for chunk := range chunks {
//	    step, _ = r.Feed(ctx, step.ID, chunk)
//	    render(step.Scene)
//	}
//	step, _ = r.Complete(ctx, step.ID)
//
// # Testing
//
// Packages are tested with the standard library; run go test ./... from
// the repository root. The Redis and MongoDB backends need a live server
// and have no unit tests.
//
// [stream]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/stream
// [ident]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/ident
// [layout]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/layout
// [layout/dot]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/layout/dot
// [dag]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/dag/transform
// [compose]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/compose
// [collide]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/collide
// [merge]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/merge
// [scene]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/scene
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/pipeline
// [session]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/session
// [cache]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/cache
// [preset]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/preset
// [config]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/diagramflow/pkg/observability/prom
package pkg
