package broker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler processes one decoded-or-not event body. Returning an error marks
// the delivery as failed for logging purposes only: the entry is
// acknowledged either way, so a poison message can never wedge the queue.
type Handler func(ctx context.Context, body []byte) error

// Ledger records applied entry ids so redeliveries of already-applied
// entries are skipped. Implemented by dedupe.Ledger; nil disables the check.
type Ledger interface {
	Seen(id string) (bool, error)
	Mark(id string) error
}

// Options identify a subscription: the stream to read, the consumer group
// (the subscriber's queue), and this process's consumer name within it.
type Options struct {
	Stream string
	Group  string
	Name   string
	Block  time.Duration
}

// Consumer runs a single consume loop over one group subscription. Entries
// are read one at a time and the handler executes synchronously, so nothing
// else on this queue makes progress while a handler (including its external
// calls) is outstanding. The sequencing per entry is: dedupe check, handler
// (mutate and possibly publish), ledger mark, acknowledge.
type Consumer struct {
	rdb     *redis.Client
	opts    Options
	handler Handler
	ledger  Ledger
	logger  *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewConsumer builds a consumer. An empty consumer name gets a generated
// one, mirroring an anonymous queue subscriber.
func NewConsumer(rdb *redis.Client, opts Options, handler Handler, ledger Ledger, logger *zap.Logger) (*Consumer, error) {
	if opts.Stream == "" || opts.Group == "" {
		return nil, errors.New("broker: stream and group are required")
	}
	if handler == nil {
		return nil, errors.New("broker: handler is required")
	}
	if opts.Name == "" {
		opts.Name = uuid.NewString()
	}
	if opts.Block <= 0 {
		opts.Block = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		rdb:     rdb,
		opts:    opts,
		handler: handler,
		ledger:  ledger,
		logger:  logger,
	}, nil
}

// Bind creates the consumer group on the stream, creating the stream if it
// does not exist yet. Binding is idempotent: a group that already exists is
// fine, so reconnects can call Bind again safely.
func (c *Consumer) Bind(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.opts.Stream, c.opts.Group, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return err
	}
	c.logger.Info("consumer group bound",
		zap.String("stream", c.opts.Stream),
		zap.String("group", c.opts.Group),
		zap.String("consumer", c.opts.Name),
	)
	return nil
}

// Start launches the consume loop in its own goroutine.
func (c *Consumer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.loop(runCtx)
}

// Stop cancels the loop and waits for any in-flight handler to finish.
// Entries delivered but not yet acknowledged stay pending in the group and
// become eligible for reclaim by another consumer.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		res, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.opts.Group,
			Consumer: c.opts.Name,
			Streams:  []string{c.opts.Stream, ">"},
			Count:    1,
			Block:    c.opts.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("stream read failed", zap.String("stream", c.opts.Stream), zap.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				c.process(ctx, msg)
			}
		}
	}
}

// process applies one entry end to end. Handler failures and malformed
// entries are logged and acknowledged; they never stop the loop.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	log := c.logger.With(
		zap.String("stream", c.opts.Stream),
		zap.String("group", c.opts.Group),
		zap.String("entry_id", msg.ID),
	)

	if c.ledger != nil {
		seen, err := c.ledger.Seen(msg.ID)
		if err != nil {
			log.Warn("dedupe lookup failed", zap.Error(err))
		} else if seen {
			log.Info("entry already applied, skipping")
			c.ack(ctx, msg.ID, log)
			return
		}
	}

	body, ok := msg.Values[fieldBody].(string)
	if !ok || body == "" {
		log.Warn("entry without body, dropping")
		c.ack(ctx, msg.ID, log)
		return
	}

	if err := c.handler(ctx, []byte(body)); err != nil {
		log.Error("event handler failed", zap.Error(err))
	} else if c.ledger != nil {
		if err := c.ledger.Mark(msg.ID); err != nil {
			log.Warn("dedupe mark failed", zap.Error(err))
		}
	}

	c.ack(ctx, msg.ID, log)
}

func (c *Consumer) ack(ctx context.Context, id string, log *zap.Logger) {
	if err := c.rdb.XAck(ctx, c.opts.Stream, c.opts.Group, id).Err(); err != nil {
		log.Warn("ack failed", zap.Error(err))
	}
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
