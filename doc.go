// Package cdc provides a Change Data Capture (CDC) connector that
// rewrites row-level changes into idempotent Cypher MERGE statements
// for Memgraph and other Bolt-compatible property-graph stores.
//
// Two input sources are supported: direct PostgreSQL logical
// replication (via go-pq-cdc) and Debezium-encoded events consumed
// from RabbitMQ. Both feed the same transformation: the change
// envelope is unwrapped, the effective row snapshot selected (after,
// else before), identity fields validated, the data blob flattened
// into properties, and a MERGE statement emitted with every value
// bound as an escaped literal. Events that fail decoding or validation
// are dropped silently; a malformed event never halts the stream.
//
// # Basic usage
//
//	conn, err := cdc.NewConnector(ctx, config.Connector{...}, executor)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//	conn.Start(ctx)
//
// The executor implements [graph.Executor] and applies batches of
// [cypher.Statement] values to the graph store; the connector never
// opens a graph connection itself. Statements are batched and the
// source position is acknowledged only after a successful flush.
//
// # Streams
//
// Each captured table (or consumed queue) belongs to one of two
// streams: "entity" rows become labeled nodes merged by
// (id, tenant_id), and "relationship" rows become typed edges between
// two merged endpoint nodes. Configure the mapping with
// [config.Graph.TableStreamMapping] or per-queue via
// [config.QueueConfig.Stream].
//
// # Metrics
//
// Pass [WithPrometheusMetrics] to expose Prometheus counters and
// gauges under the "go_pq_cdc_memgraph" namespace.
package cdc
