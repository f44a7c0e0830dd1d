package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher записывает уведомления в журнал. Используется, когда внешние
// каналы не настроены.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher создаёт издателя, пишущего в logger.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Name возвращает название канала.
func (p *LogPublisher) Name() string {
	return "log"
}

// Publish журналирует сообщение.
func (p *LogPublisher) Publish(_ context.Context, msg Message) error {
	p.logger.Info("notification", zap.String("subject", msg.Subject), zap.String("body", msg.Body))
	return nil
}
