package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderID формирует идентификатор заказа вида BB-20060102-XXXXXXXXXXXX:
// дата оформления и 12 случайных шестнадцатеричных символов.
func NewOrderID(placedAt time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return "BB-" + placedAt.Format("20060102") + "-" + suffix
}
