package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"github.com/Trendyol/go-pq-cdc/logger"
	"github.com/ezeql/go-pq-cdc-memgraph/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Dispatch receives one delivery together with the stream kind of the
// queue it arrived on. The callback owns acknowledgement: it must ack
// or nack the delivery exactly once.
type Dispatch func(stream string, delivery amqp.Delivery)

// Consumer subscribes to every configured queue and funnels deliveries
// into the dispatch callback. After a broker reconnect it re-registers
// all subscriptions on the fresh channel.
type Consumer struct {
	client Client
	cfg    *config.Connector
	wg     sync.WaitGroup
}

func NewConsumer(client Client, cfg *config.Connector) *Consumer {
	return &Consumer{client: client, cfg: cfg}
}

func (c *Consumer) Start(ctx context.Context, dispatch Dispatch) error {
	if len(c.cfg.RabbitMQ.Queues) == 0 {
		return fmt.Errorf("no queues configured for rabbitmq source")
	}
	if err := c.subscribeAll(ctx, dispatch); err != nil {
		return err
	}
	go c.resubscribeLoop(ctx, dispatch)
	return nil
}

// Wait blocks until every in-flight delivery loop has drained.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) subscribeAll(ctx context.Context, dispatch Dispatch) error {
	ch := c.client.Channel()
	if ch == nil {
		return fmt.Errorf("rabbitmq channel is nil")
	}

	for _, q := range c.cfg.RabbitMQ.Queues {
		deliveries, err := ch.Consume(
			q.Name,
			c.cfg.RabbitMQ.ConnectionName,
			false,
			q.Exclusive,
			false,
			q.NoWait,
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume %q: %w", q.Name, err)
		}

		c.wg.Add(1)
		go c.deliveryLoop(ctx, q.Stream, deliveries, dispatch)
	}
	return nil
}

// deliveryLoop drains one queue subscription. The deliveries channel
// closes when the AMQP channel dies; the resubscribe loop brings a
// replacement up after reconnection.
func (c *Consumer) deliveryLoop(ctx context.Context, stream string, deliveries <-chan amqp.Delivery, dispatch Dispatch) {
	defer c.wg.Done()
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			dispatch(stream, d)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) resubscribeLoop(ctx context.Context, dispatch Dispatch) {
	for {
		select {
		case <-c.client.NotifyReconnect():
			if err := c.subscribeAll(ctx, dispatch); err != nil {
				logger.Error("rabbitmq resubscribe", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
