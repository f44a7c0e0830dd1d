// Package notify отправляет уведомления о событиях учётных записей и заказов.
// Доставка выполняется не более одного раза и никогда не влияет на результат
// бизнес-операции, которая её вызвала.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mmeshcher/bookbazar/internal/model"
)

const defaultTimeout = 5 * time.Second

// Publisher публикует уведомление в канал (топик, вебхук, журнал).
type Publisher interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
}

// Mailer отправляет транзакционное письмо покупателю.
type Mailer interface {
	Send(ctx context.Context, to string, msg Message) error
}

// Dispatcher рассылает уведомления по всем настроенным каналам.
type Dispatcher struct {
	publishers []Publisher
	mailer     Mailer
	logger     *zap.Logger
	timeout    time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option настраивает Dispatcher.
type Option func(*Dispatcher)

// WithMailer включает отправку писем-подтверждений заказов.
func WithMailer(m Mailer) Option {
	return func(d *Dispatcher) {
		d.mailer = m
	}
}

// WithTimeout задаёт ограничение времени на одну попытку доставки.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher создаёт диспетчер уведомлений.
func NewDispatcher(logger *zap.Logger, publishers []Publisher, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		publishers: publishers,
		logger:     logger,
		timeout:    defaultTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Sinks возвращает названия настроенных каналов доставки.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.publishers)+1)
	for _, p := range d.publishers {
		names = append(names, p.Name())
	}
	if d.mailer != nil {
		names = append(names, "smtp")
	}
	return names
}

// Notify отправляет уведомление в фоне. Ошибки доставки только журналируются.
// После вызова Close события отбрасываются.
func (d *Dispatcher) Notify(event model.Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Debug("notification dropped after close", zap.String("event", string(event.Kind)))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.logger.Error("notification delivery panicked",
					zap.String("event", string(event.Kind)), zap.Any("panic", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()

		if err := d.deliver(ctx, event); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("event", string(event.Kind)),
				zap.String("username", event.Username),
				zap.Error(err))
		}
	}()
}

// Deliver выполняет одну синхронную попытку доставки и возвращает её результат.
// Используется там, где пользователю нужно показать предупреждение о сбое.
func (d *Dispatcher) Deliver(ctx context.Context, event model.Event) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.deliver(ctx, event)
	if err != nil {
		d.logger.Warn("notification delivery failed",
			zap.String("event", string(event.Kind)),
			zap.String("username", event.Username),
			zap.Error(err))
	}
	return err
}

func (d *Dispatcher) deliver(ctx context.Context, event model.Event) error {
	msg := Format(event)

	var err error
	for _, p := range d.publishers {
		if pErr := p.Publish(ctx, msg); pErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", p.Name(), pErr))
		}
	}

	if event.Kind == model.EventOrderPlaced && event.Order != nil && d.mailer != nil {
		confirmation := FormatConfirmation(event.Order)
		if mErr := d.mailer.Send(ctx, event.Order.Customer.Email, confirmation); mErr != nil {
			err = multierr.Append(err, fmt.Errorf("smtp: %w", mErr))
		}
	}

	return err
}

// Close ожидает завершения фоновых доставок. По истечении ctx незавершённые
// доставки отменяются.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
