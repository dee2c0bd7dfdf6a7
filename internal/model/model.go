// Package model содержит доменные сущности леджера счетов.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionID представляет 64-битный идентификатор сессии, выданный при входе.
// Значение 0 зарезервировано и всегда трактуется как «нет сессии», поэтому
// таблица сессий никогда его не выдаёт.
type SessionID int64

// SessionNone — зарезервированное значение «нет сессии».
const SessionNone SessionID = 0

// Valid сообщает, является ли идентификатор потенциально действующей сессией.
func (id SessionID) Valid() bool {
	return id != SessionNone
}

// Transaction описывает одну запись журнала операций счёта: положительная
// сумма — пополнение, отрицательная — списание. Поля фиксируются в момент
// создания и далее не изменяются.
type Transaction struct {
	Amount    decimal.Decimal
	CreatedAt time.Time
}
