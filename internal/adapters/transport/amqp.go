package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/okian/sunwatch/internal/domain/model"
	"github.com/okian/sunwatch/pkg/logger"
	"github.com/okian/sunwatch/pkg/metrics"
)

// Default AMQP configuration constants.
const (
	defaultExchange       = "sunwatch"
	defaultRetryAttempts  = 5
	defaultRetryDelay     = 500 * time.Millisecond
	defaultConfirmTimeout = 5 * time.Second
	dispatchBuffer        = 64
)

type delivery struct {
	item Item
	sub  *amqpSubscription
}

// AMQP pairs the phone and the watch through a topic exchange on a broker.
// Items seen by this process, published or delivered, are retained for Fetch.
type AMQP struct {
	dsn            string
	exchange       string
	useTLS         bool
	tlsConfig      *tls.Config
	retryAttempts  uint
	retryDelay     time.Duration
	confirmTimeout time.Duration

	conn *amqp.Connection

	// pubMu serializes publishes so confirms arrive in tag order.
	pubMu    sync.Mutex
	pubCh    *amqp.Channel
	confirms chan amqp.Confirmation
	tag      uint64

	mu       sync.Mutex
	closed   bool
	retained map[string]Item
	subs     map[*amqpSubscription]struct{}

	deliveries chan delivery
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	done       chan struct{}

	logger logger.Logger
}

// NewAMQP dials the broker, declares the exchange and enables publisher
// confirms. Setup is retried.
func NewAMQP(ctx context.Context, dsn string, opts ...AMQPOption) (*AMQP, error) {
	a := &AMQP{
		dsn:            dsn,
		exchange:       defaultExchange,
		retryAttempts:  defaultRetryAttempts,
		retryDelay:     defaultRetryDelay,
		confirmTimeout: defaultConfirmTimeout,
		retained:       make(map[string]Item),
		subs:           make(map[*amqpSubscription]struct{}),
		deliveries:     make(chan delivery, dispatchBuffer),
		done:           make(chan struct{}),
		logger:         logger.Get().Named("transport.amqp"),
	}

	for _, opt := range opts {
		opt(a)
	}

	err := retry.Do(
		a.connect,
		retry.Attempts(a.retryAttempts),
		retry.Delay(a.retryDelay),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn(ctx, "broker setup failed, retrying",
				logger.Int("attempt", int(n)+1),
				logger.Error(err),
			)
		}),
	)
	if err != nil {
		metrics.RecordErrorByComponent("transport", "connect")
		return nil, failure(err)
	}

	a.ctx, a.cancel = context.WithCancel(context.Background())
	go a.dispatch()

	a.logger.Info(ctx, "connected to broker", logger.String("exchange", a.exchange))
	return a, nil
}

func (a *AMQP) connect() error {
	var (
		conn *amqp.Connection
		err  error
	)
	if a.useTLS {
		conn, err = amqp.DialTLS(a.dsn, a.tlsConfig)
	} else {
		conn, err = amqp.Dial(a.dsn)
	}
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		a.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,   // arguments
	); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", a.exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("enable confirms: %w", err)
	}

	a.conn = conn
	a.pubCh = ch
	a.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, dispatchBuffer))
	a.tag = 0
	return nil
}

// Publish sends fields to the exchange and resolves once the broker confirms.
func (a *AMQP) Publish(ctx context.Context, path string, fields model.Fields) <-chan Result {
	item := Item{
		ID:     uuid.NewString(),
		Path:   path,
		Fields: fields.Clone(),
		At:     time.Now(),
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		metrics.RecordErrorByComponent("transport", "closed")
		return resolved(Result{ID: item.ID, Err: failure(ErrClosed)})
	}

	body, err := encodeItem(item)
	if err != nil {
		metrics.RecordErrorByComponent("transport", "encode")
		return resolved(Result{ID: item.ID, Err: failure(err)})
	}

	res := make(chan Result, 1)
	go func() {
		err := a.publish(ctx, item, body)
		if err == nil {
			a.retain(item)
		} else {
			err = failure(err)
		}
		res <- Result{ID: item.ID, Err: err}
	}()
	return res
}

func (a *AMQP) publish(ctx context.Context, item Item, body []byte) error {
	a.pubMu.Lock()
	defer a.pubMu.Unlock()

	if err := a.pubCh.Publish(
		a.exchange,
		routingKey(item.Path),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: contentType,
			MessageId:   item.ID,
			Timestamp:   item.At,
			Body:        body,
		},
	); err != nil {
		metrics.RecordErrorByComponent("transport", "publish")
		return err
	}
	a.tag++
	return awaitConfirm(ctx, a.confirms, a.tag, a.confirmTimeout)
}

// awaitConfirm waits for the broker's confirm of delivery tag want. Confirms
// for earlier tags belong to publishes that already gave up and are skipped.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, want uint64, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case c, ok := <-confirms:
			if !ok {
				return ErrClosed
			}
			if c.DeliveryTag < want {
				continue
			}
			if !c.Ack {
				metrics.RecordErrorByComponent("transport", "nack")
				return ErrNack
			}
			return nil
		case <-timer.C:
			metrics.RecordErrorByComponent("transport", "confirm_timeout")
			return fmt.Errorf("confirm %d: %w", want, context.DeadlineExceeded)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribe declares an exclusive auto-delete queue bound to path's routing
// key and consumes from it.
func (a *AMQP) Subscribe(ctx context.Context, path string, h Handler) (Subscription, error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return nil, failure(ErrClosed)
	}

	sub := &amqpSubscription{a: a, path: path, h: h, tag: "sunwatch-" + uuid.NewString()}

	var msgs <-chan amqp.Delivery
	err := retry.Do(
		func() error {
			var err error
			msgs, err = sub.setup()
			return err
		},
		retry.Attempts(a.retryAttempts),
		retry.Delay(a.retryDelay),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
	)
	if err != nil {
		metrics.RecordErrorByComponent("transport", "subscribe")
		return nil, failure(err)
	}

	a.mu.Lock()
	a.subs[sub] = struct{}{}
	a.mu.Unlock()

	a.wg.Add(1)
	go a.consume(sub, msgs)

	a.logger.Debug(ctx, "subscribed",
		logger.String("path", path),
		logger.String("queue", sub.queue),
	)
	return sub, nil
}

// Fetch returns the last item this process saw on path.
func (a *AMQP) Fetch(ctx context.Context, path string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	item, ok := a.retained[path]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	item.Fields = item.Fields.Clone()
	return item, nil
}

// Close cancels every subscription and closes the broker connection.
func (a *AMQP) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	subs := make([]*amqpSubscription, 0, len(a.subs))
	for s := range a.subs {
		subs = append(subs, s)
	}
	a.mu.Unlock()

	for _, s := range subs {
		_ = s.Unsubscribe()
	}
	a.cancel()
	a.wg.Wait()
	<-a.done

	if err := a.conn.Close(); err != nil && err != amqp.ErrClosed {
		return fmt.Errorf("close broker connection: %w", err)
	}
	return nil
}

func (a *AMQP) retain(item Item) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cur, ok := a.retained[item.Path]; ok && cur.At.After(item.At) {
		return
	}
	a.retained[item.Path] = item
}

func (a *AMQP) consume(sub *amqpSubscription, msgs <-chan amqp.Delivery) {
	defer a.wg.Done()

	for d := range msgs {
		item, err := decodeItem(d.Body)
		if err != nil {
			metrics.RecordErrorByComponent("transport", "decode")
			a.logger.Warn(a.ctx, "dropping undecodable delivery",
				logger.String("message_id", d.MessageId),
				logger.Error(err),
			)
			continue
		}
		select {
		case a.deliveries <- delivery{item: item, sub: sub}:
		case <-a.ctx.Done():
			return
		}
	}
}

// dispatch is the only goroutine that runs handlers.
func (a *AMQP) dispatch() {
	defer close(a.done)

	for {
		select {
		case d := <-a.deliveries:
			a.deliver(d)
		case <-a.ctx.Done():
			return
		}
	}
}

// deliver retains d and hands it to its subscription unless that was
// cancelled meanwhile. It reports whether the handler ran.
func (a *AMQP) deliver(d delivery) bool {
	a.retain(d.item)
	if !d.sub.active() {
		return false
	}
	d.sub.h(a.ctx, d.item)
	metrics.RecordDelivery(d.item.Path)
	return true
}

type amqpSubscription struct {
	a     *AMQP
	path  string
	h     Handler
	tag   string
	queue string
	ch    *amqp.Channel

	mu      sync.Mutex
	stopped bool
}

func (s *amqpSubscription) setup() (<-chan amqp.Delivery, error) {
	ch, err := s.a.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey(s.path), s.a.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind queue %s: %w", q.Name, err)
	}

	msgs, err := ch.Consume(
		q.Name,
		s.tag,
		true,  // autoAck
		true,  // exclusive
		false, // noLocal
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume %s: %w", q.Name, err)
	}

	s.ch = ch
	s.queue = q.Name
	return msgs, nil
}

func (s *amqpSubscription) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Unsubscribe cancels the consumer; its queue is deleted by the broker.
func (s *amqpSubscription) Unsubscribe() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.a.mu.Lock()
	delete(s.a.subs, s)
	s.a.mu.Unlock()

	if err := s.ch.Cancel(s.tag, false); err != nil && err != amqp.ErrClosed {
		return fmt.Errorf("cancel consumer %s: %w", s.tag, err)
	}
	if err := s.ch.Close(); err != nil && err != amqp.ErrClosed {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}
