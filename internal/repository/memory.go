// Package repository содержит реализацию хранилища счетов в памяти процесса.
package repository

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mmeshcher/ledger-system/internal/model"
	"github.com/mmeshcher/ledger-system/internal/password"
	"github.com/shopspring/decimal"
)

// ErrAccountExists возвращается при попытке создать счёт с уже существующим логином.
var (
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound возвращается, если счёт не найден.
	ErrAccountNotFound = errors.New("account not found")
)

// account хранит состояние одного счёта. Запись защищена собственным
// мьютексом: изменение баланса и дозапись в журнал видны только вместе.
// Логин и креденшелы после создания не меняются.
type account struct {
	mu        sync.Mutex
	login     string
	creds     password.Hashed
	session   model.SessionID
	balance   decimal.Decimal
	log       []model.Transaction
	createdAt time.Time
}

// MemoryRepository предоставляет доступ к счетам, живущим в памяти процесса.
// Карта логинов защищена RWMutex, каждая запись — собственным мьютексом,
// поэтому операции над разными счетами не задерживают друг друга.
// Счета никогда не удаляются.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// NewMemoryRepository создаёт пустое хранилище счетов.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]*account)}
}

func (r *MemoryRepository) get(login string) (*account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acc, ok := r.accounts[login]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// Create регистрирует новый счёт с нулевым балансом и пустым журналом.
// Проверка занятости логина и вставка выполняются в одной критической
// секции: из двух конкурентных созданий с одним логином успешно ровно одно.
func (r *MemoryRepository) Create(login string, creds password.Hashed) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[login]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, login)
	}

	r.accounts[login] = &account{
		login:     login,
		creds:     creds,
		session:   model.SessionNone,
		balance:   decimal.Zero,
		createdAt: time.Now(),
	}
	return nil
}

// Credentials возвращает сохранённую пару хеша и соли по логину.
func (r *MemoryRepository) Credentials(login string) (password.Hashed, error) {
	acc, err := r.get(login)
	if err != nil {
		return password.Hashed{}, err
	}
	// Креденшелы неизменяемы, блокировка записи не нужна.
	return acc.creds, nil
}

// SwapSession атомарно записывает за счётом идентификатор новой сессии и
// возвращает прежний.
func (r *MemoryRepository) SwapSession(login string, sid model.SessionID) (model.SessionID, error) {
	acc, err := r.get(login)
	if err != nil {
		return model.SessionNone, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	prev := acc.session
	acc.session = sid
	return prev, nil
}

// Append атомарно изменяет баланс на amount и дописывает проводку в журнал.
// Положительная сумма — пополнение, отрицательная — списание; контроль
// допустимости сумм лежит на вызывающей стороне. Возвращает баланс после
// проводки.
func (r *MemoryRepository) Append(login string, amount decimal.Decimal) (decimal.Decimal, error) {
	acc, err := r.get(login)
	if err != nil {
		return decimal.Zero, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.balance = acc.balance.Add(amount)
	acc.log = append(acc.log, model.Transaction{Amount: amount, CreatedAt: time.Now()})
	return acc.balance, nil
}

// Balance возвращает текущий баланс счёта.
func (r *MemoryRepository) Balance(login string) (decimal.Decimal, error) {
	acc, err := r.get(login)
	if err != nil {
		return decimal.Zero, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance, nil
}

// Transactions возвращает копию журнала проводок в порядке записи.
// Копия защищает журнал от изменения снаружи.
func (r *MemoryRepository) Transactions(login string) ([]model.Transaction, error) {
	acc, err := r.get(login)
	if err != nil {
		return nil, err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()

	res := make([]model.Transaction, len(acc.log))
	copy(res, acc.log)
	return res, nil
}
