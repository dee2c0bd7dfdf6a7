// Package service реализует бизнес-логику леджера счетов.
package service

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/ledger-system/internal/model"
	"github.com/mmeshcher/ledger-system/internal/password"
	"github.com/mmeshcher/ledger-system/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrEmptyCredentials возвращается, если логин или пароль при регистрации пусты.
var (
	ErrEmptyCredentials = errors.New("login and password must not be empty")
	// ErrInvalidCredentials возвращается при неверной паре логин-пароль.
	ErrInvalidCredentials = errors.New("invalid login or password")
	// ErrInvalidAmount возвращается для недопустимой суммы операции.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSessionNotFound возвращается при выходе из сессии, которой уже нет.
	ErrSessionNotFound = errors.New("session not found")
)

// Accounts описывает контракт хранилища счетов, используемый сервисом.
type Accounts interface {
	Create(login string, creds password.Hashed) error
	Credentials(login string) (password.Hashed, error)
	SwapSession(login string, sid model.SessionID) (model.SessionID, error)
	Append(login string, amount decimal.Decimal) (decimal.Decimal, error)
	Balance(login string) (decimal.Decimal, error)
	Transactions(login string) ([]model.Transaction, error)
}

// Sessions описывает контракт таблицы сессий, используемый сервисом.
type Sessions interface {
	Issue(login string) (model.SessionID, error)
	CheckAndTouch(id model.SessionID, refresh bool) (string, error)
	Revoke(id model.SessionID) (bool, error)
}

// Service содержит бизнес-логику леджера: проверку паролей, выпуск и отзыв
// сессий, операции над балансом и журналом проводок.
type Service struct {
	accounts Accounts
	sessions Sessions
	hasher   password.Hasher
	logger   *zap.Logger
}

// NewService создаёт новый сервис поверх хранилища счетов и таблицы сессий.
func NewService(accounts Accounts, sessions Sessions, hasher password.Hasher, logger *zap.Logger) *Service {
	return &Service{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}
}

// CreateAccount регистрирует новый счёт. Логин и пароль обязаны быть
// непустыми; пароль сохраняется в виде хеша со свежей солью.
func (s *Service) CreateAccount(login, password string) error {
	if login == "" || password == "" {
		return ErrEmptyCredentials
	}

	creds, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.Create(login, creds); err != nil {
		return err
	}

	s.logger.Info("account created", zap.String("login", login))
	return nil
}

// Login проверяет пароль и выпускает новую сессию счёта. Прежняя живая
// сессия счёта отзывается: активна одновременно ровно одна. Несуществующий
// логин и неверный пароль дают одну и ту же ошибку ErrInvalidCredentials.
func (s *Service) Login(login, password string) (model.SessionID, error) {
	if login == "" || password == "" {
		return model.SessionNone, ErrInvalidCredentials
	}

	creds, err := s.accounts.Credentials(login)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			s.logger.Warn("login rejected", zap.String("login", login))
			return model.SessionNone, ErrInvalidCredentials
		}
		return model.SessionNone, err
	}
	if !s.hasher.Verify(password, creds) {
		s.logger.Warn("login rejected", zap.String("login", login))
		return model.SessionNone, ErrInvalidCredentials
	}

	sid, err := s.sessions.Issue(login)
	if err != nil {
		return model.SessionNone, err
	}

	prev, err := s.accounts.SwapSession(login, sid)
	if err != nil {
		return model.SessionNone, err
	}
	if prev.Valid() {
		if _, err := s.sessions.Revoke(prev); err != nil {
			return model.SessionNone, err
		}
	}

	s.logger.Info("session issued", zap.String("login", login))
	return sid, nil
}

// Logout отзывает сессию. Отзыв безусловный: просроченная, но ещё не
// вычищенная сессия тоже снимается без ошибки.
func (s *Service) Logout(sid model.SessionID) error {
	removed, err := s.sessions.Revoke(sid)
	if err != nil {
		return err
	}
	if !removed {
		return ErrSessionNotFound
	}
	return nil
}

// Balance возвращает текущий баланс счёта владельца сессии. Успешное
// обращение продлевает сессию.
func (s *Service) Balance(sid model.SessionID) (decimal.Decimal, error) {
	login, err := s.sessions.CheckAndTouch(sid, true)
	if err != nil {
		return decimal.Zero, err
	}
	return s.accounts.Balance(login)
}

// Deposit пополняет счёт владельца сессии. Сумма обязана быть строго
// положительной. Сессия разрешается первой: мёртвая сессия сообщается
// раньше, чем недопустимая сумма.
func (s *Service) Deposit(sid model.SessionID, amount decimal.Decimal) (decimal.Decimal, error) {
	login, err := s.sessions.CheckAndTouch(sid, true)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return s.accounts.Append(login, amount)
}

// Withdraw списывает сумму со счёта владельца сессии. Отрицательные суммы
// отклоняются, нулевые допустимы. Достаточность средств не проверяется,
// баланс может уйти в минус.
func (s *Service) Withdraw(sid model.SessionID, amount decimal.Decimal) (decimal.Decimal, error) {
	login, err := s.sessions.CheckAndTouch(sid, true)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.Sign() < 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return s.accounts.Append(login, amount.Neg())
}

// History возвращает копию журнала проводок счёта владельца сессии в
// порядке записи.
func (s *Service) History(sid model.SessionID) ([]model.Transaction, error) {
	login, err := s.sessions.CheckAndTouch(sid, true)
	if err != nil {
		return nil, err
	}
	return s.accounts.Transactions(login)
}
