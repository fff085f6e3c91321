package cdc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cdc "github.com/Trendyol/go-pq-cdc"
	"github.com/Trendyol/go-pq-cdc/logger"
	"github.com/Trendyol/go-pq-cdc/pq/message/format"
	"github.com/Trendyol/go-pq-cdc/pq/replication"
	"github.com/Trendyol/go-pq-cdc/pq/timescaledb"
	"github.com/ezeql/go-pq-cdc-memgraph/config"
	"github.com/ezeql/go-pq-cdc-memgraph/cypher"
	"github.com/ezeql/go-pq-cdc-memgraph/graph"
	"github.com/ezeql/go-pq-cdc-memgraph/internal/sliceutil"
	"github.com/ezeql/go-pq-cdc-memgraph/rabbitmq"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler lets callers override the built-in transformation for a row
// change. Returning nil or an empty slice silently skips the event.
type Handler func(msg *Message) []cypher.Statement

type Connector interface {
	Start(ctx context.Context)
	WaitUntilReady(ctx context.Context) error
	Close()
}

// streamResult stores a cached table-to-stream resolution result.
type streamResult struct {
	stream string
	found  bool
}

type connector struct {
	cdc             cdc.Connector
	client          rabbitmq.Client
	consumer        *rabbitmq.Consumer
	writer          graph.Writer
	executor        graph.Executor
	responseHandler graph.ResponseHandler
	handler         Handler
	cfg             *config.Connector
	readyCh         chan struct{}
	streamCache     sync.Map
	partitionCache  sync.Map
	metrics         []prometheus.Collector
	readyOnce       sync.Once
	closeOnce       sync.Once
}

func NewConnector(ctx context.Context, cfg config.Connector, executor graph.Executor, options ...Option) (Connector, error) {
	cfg.SetDefault()
	if executor == nil {
		return nil, errors.New("graph executor is required")
	}
	m := &connector{
		cfg:      &cfg,
		executor: executor,
		readyCh:  make(chan struct{}),
	}

	Options(options).Apply(m)

	if m.responseHandler == nil {
		m.responseHandler = &graph.DefaultResponseHandler{}
	}

	switch m.cfg.Source {
	case config.SourcePostgres:
		pqCDC, err := cdc.NewConnector(ctx, m.cfg.CDC, m.listener)
		if err != nil {
			return nil, err
		}
		m.cdc = pqCDC
		m.cfg.CDC = *pqCDC.GetConfig()
	case config.SourceRabbitMQ:
		client, err := rabbitmq.NewClient(m.cfg)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq new client: %w", err)
		}
		m.client = client
		m.consumer = rabbitmq.NewConsumer(client, m.cfg)
	default:
		return nil, fmt.Errorf("unknown source %q", m.cfg.Source)
	}

	writer, err := graph.NewWriter(executor, graph.WriterConfig{
		BatchBytes:          m.cfg.Graph.BatchBytes,
		SlotName:            m.cfg.CDC.Slot.Name,
		BatchSize:           m.cfg.Graph.BatchSize,
		BatchTickerDuration: m.cfg.Graph.BatchTickerDuration,
		MaxRetries:          m.cfg.Graph.MaxRetries,
	}, m.responseHandler)
	if err != nil {
		logger.Error("graph new writer", "error", err)
		return nil, err
	}
	m.writer = writer

	if m.cdc != nil {
		m.cdc.SetMetricCollectors(m.writer.GetMetric().PrometheusCollectors()...)
		m.cdc.SetMetricCollectors(m.metrics...)
	}
	return m, nil
}

func (c *connector) Start(ctx context.Context) {
	if c.consumer != nil {
		c.startRabbitMQ(ctx)
		return
	}

	if c.cfg.CDC.IsSnapshotOnlyMode() {
		logger.Info("starting snapshot-only mode")
		logger.Info("bulk process started")
		c.writer.StartBatchTicker()
		c.signalReady()
		c.cdc.Start(ctx)
		logger.Info("snapshot-only mode completed")
		return
	}

	go func() {
		logger.Info("waiting for connector start...")
		if err := c.cdc.WaitUntilReady(ctx); err != nil {
			panic(err)
		}
		logger.Info("bulk process started")
		c.writer.StartBatchTicker()
		c.signalReady()
	}()
	c.cdc.Start(ctx)
}

func (c *connector) startRabbitMQ(ctx context.Context) {
	c.writer.StartBatchTicker()
	if err := c.consumer.Start(ctx, c.dispatch); err != nil {
		logger.Error("rabbitmq consumer start", "error", err)
		return
	}
	c.signalReady()
	<-ctx.Done()
	c.consumer.Wait()
}

func (c *connector) WaitUntilReady(ctx context.Context) error {
	select {
	case <-c.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *connector) Close() {
	c.closeOnce.Do(func() {
		c.signalReady()
		if c.cdc != nil {
			c.cdc.Close()
		}
		c.writer.Close()
		if c.client != nil {
			if err := c.client.Close(); err != nil {
				logger.Error("rabbitmq client close", "error", err)
			}
		}
	})
}

// listener handles one replicated row change from the postgres source.
func (c *connector) listener(ctx *replication.ListenerContext) {
	var msg *Message
	switch m := ctx.Message.(type) {
	case *format.Insert:
		msg = NewInsertMessage(m)
	case *format.Update:
		msg = NewUpdateMessage(m)
	case *format.Delete:
		msg = NewDeleteMessage(m)
	case *format.Snapshot:
		msg = NewSnapshotMessage(m)
	default:
		return
	}

	fullTableName := c.getFullTableName(msg.TableNamespace, msg.TableName)
	stream, ok := c.resolveTableToStream(fullTableName, msg.TableNamespace, msg.TableName)
	if !ok {
		c.ackIfIdle(ctx, fullTableName)
		return
	}

	var statements []cypher.Statement
	if c.handler != nil {
		statements = c.handler(msg)
	} else if stmt, built := c.buildStatement(stream, msg.Envelope()); built {
		statements = []cypher.Statement{stmt}
	}

	if len(statements) == 0 {
		c.writer.GetMetric().AddSkippedOp(stream)
		c.ackIfIdle(ctx, fullTableName)
		return
	}

	batchSizeLimit := c.cfg.Graph.BatchSize
	if len(statements) > batchSizeLimit {
		chunks := sliceutil.ChunkWithSize(statements, batchSizeLimit)
		lastChunkIndex := len(chunks) - 1
		for idx, chunk := range chunks {
			c.writer.Produce(graph.AckFunc(ctx.Ack), msg.EventTime, stream, chunk, idx == lastChunkIndex)
		}
		return
	}
	c.writer.Produce(graph.AckFunc(ctx.Ack), msg.EventTime, stream, statements, true)
}

// dispatch handles one Debezium delivery from the rabbitmq source. The
// raw body flows through the byte-decoding path of the transformation;
// undecodable or invalid events are acked and dropped.
func (c *connector) dispatch(stream string, delivery amqp.Delivery) {
	stmt, ok := c.buildStatement(stream, delivery.Body)
	if !ok {
		c.writer.GetMetric().AddSkippedOp(stream)
		if err := delivery.Ack(false); err != nil {
			logger.Error("ack", "error", err)
		}
		return
	}

	eventTime := delivery.Timestamp
	if eventTime.IsZero() {
		eventTime = time.Now()
	}
	// multiple=true acknowledges everything up to this delivery tag,
	// matching the writer's batch flush granularity.
	ack := graph.AckFunc(func() error { return delivery.Ack(true) })
	c.writer.Produce(ack, eventTime, stream, []cypher.Statement{stmt}, true)
}

func (c *connector) buildStatement(stream string, raw any) (cypher.Statement, bool) {
	if stream == config.StreamRelationship {
		return cypher.BuildRelationshipStatement(raw)
	}
	return cypher.BuildEntityStatement(raw)
}

func (c *connector) resolveTableToStream(fullTableName, tableNamespace, tableName string) (string, bool) {
	if cached, ok := c.streamCache.Load(fullTableName); ok {
		result := cached.(streamResult)
		return result.stream, result.found
	}

	stream, found := c.resolveTableToStreamSlow(fullTableName, tableNamespace, tableName)
	c.streamCache.Store(fullTableName, streamResult{stream: stream, found: found})
	return stream, found
}

// resolveTableToStreamSlow is the uncached table resolution path. It
// falls back to hypertable and partition parents so partitioned
// merged-entity tables inherit their parent's stream.
func (c *connector) resolveTableToStreamSlow(fullTableName, tableNamespace, tableName string) (string, bool) {
	mapping := c.cfg.Graph.TableStreamMapping

	if stream, ok := mapping[fullTableName]; ok {
		return stream, true
	}
	if t, ok := timescaledb.HyperTables.Load(fullTableName); ok {
		parentName := t.(string)
		if stream, ok := mapping[parentName]; ok {
			return stream, true
		}
	}
	if parent := c.getParentTableName(fullTableName, tableNamespace, tableName); parent != "" {
		if stream, ok := mapping[parent]; ok {
			return stream, true
		}
	}
	return "", false
}

func (c *connector) getParentTableName(fullTableName, tableNamespace, tableName string) string {
	if cachedValue, found := c.partitionCache.Load(fullTableName); found {
		parentName, ok := cachedValue.(string)
		if !ok {
			logger.Error("invalid cache value type for table", "table", fullTableName)
			return ""
		}
		return parentName
	}

	parentTableName := c.findParentTable(tableNamespace, tableName)
	c.partitionCache.Store(fullTableName, parentTableName)
	return parentTableName
}

func (c *connector) findParentTable(tableNamespace, tableName string) string {
	tableParts := strings.Split(tableName, "_")
	if len(tableParts) <= 1 {
		return ""
	}
	for i := 1; i < len(tableParts); i++ {
		parentNameCandidate := strings.Join(tableParts[:i], "_")
		fullParentName := c.getFullTableName(tableNamespace, parentNameCandidate)
		if _, exists := c.cfg.Graph.TableStreamMapping[fullParentName]; exists {
			return fullParentName
		}
	}
	return ""
}

func (c *connector) getFullTableName(tableNamespace, tableName string) string {
	return tableNamespace + "." + tableName
}

func (c *connector) ackIfIdle(ctx *replication.ListenerContext, table string) {
	if c.writer.HasPendingStatements() {
		logger.Warn("skipping ACK - pending statements in batch", "table", table)
		return
	}
	if err := ctx.Ack(); err != nil {
		logger.Error("ack", "error", err)
	}
}

func (c *connector) signalReady() {
	c.readyOnce.Do(func() {
		close(c.readyCh)
	})
}
