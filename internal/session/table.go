// Package session реализует таблицу активных сессий с ленивым истечением.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mmeshcher/ledger-system/internal/model"
)

// Значения по умолчанию: время жизни сессии и ожидание блокировки таблицы.
const (
	DefaultTTL         = 60 * time.Second
	DefaultLockTimeout = 3 * time.Second
)

var (
	// ErrSessionInvalid возвращается, если сессия не найдена в таблице.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionExpired возвращается, если время жизни сессии истекло.
	ErrSessionExpired = errors.New("session expired")
	// ErrLockTimeout возвращается, если блокировку таблицы не удалось получить за отведённое время.
	ErrLockTimeout = errors.New("session table lock timeout")
)

type entry struct {
	login     string
	expiresAt time.Time
}

// Table хранит активные сессии под единой эксклюзивной блокировкой с
// ограниченным ожиданием: каждая операция выполняется целиком в критической
// секции, а по истечении тайм-аута ожидания завершается ошибкой
// ErrLockTimeout вместо бесконечной блокировки.
type Table struct {
	lock        chan struct{}
	ttl         time.Duration
	lockTimeout time.Duration
	sessions    map[model.SessionID]entry
	random      io.Reader
}

// NewTable создаёт пустую таблицу сессий. Неположительные параметры
// заменяются значениями по умолчанию.
func NewTable(ttl, lockTimeout time.Duration) *Table {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Table{
		lock:        make(chan struct{}, 1),
		ttl:         ttl,
		lockTimeout: lockTimeout,
		sessions:    make(map[model.SessionID]entry),
		random:      rand.Reader,
	}
}

func (t *Table) acquire() error {
	timer := time.NewTimer(t.lockTimeout)
	defer timer.Stop()

	select {
	case t.lock <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	}
}

func (t *Table) release() {
	<-t.lock
}

// Issue генерирует идентификатор новой сессии и регистрирует его за
// указанным логином. Идентификатор берётся из криптографического источника
// случайности методом отбраковки: нулевое значение (зарезервировано) и
// значения, занятые живыми сессиями, отбрасываются и тянутся заново.
// Формально цикл не ограничен, но вероятность повтора 64-битного значения
// пренебрежимо мала, поэтому практически он завершается с первой попытки.
func (t *Table) Issue(login string) (model.SessionID, error) {
	if err := t.acquire(); err != nil {
		return model.SessionNone, err
	}
	defer t.release()

	for {
		var buf [8]byte
		if _, err := io.ReadFull(t.random, buf[:]); err != nil {
			return model.SessionNone, fmt.Errorf("read random: %w", err)
		}

		id := model.SessionID(binary.BigEndian.Uint64(buf[:]))
		if !id.Valid() {
			continue
		}
		if _, busy := t.sessions[id]; busy {
			continue
		}

		t.sessions[id] = entry{login: login, expiresAt: time.Now().Add(t.ttl)}
		return id, nil
	}
}

// CheckAndTouch проверяет сессию и возвращает логин её владельца.
// Просроченная запись удаляется при этом же обращении (ленивое истечение)
// с ошибкой ErrSessionExpired; отсутствующая даёт ErrSessionInvalid.
// При refresh срок живой сессии продлевается на полный TTL от текущего
// момента (скользящее истечение).
func (t *Table) CheckAndTouch(id model.SessionID, refresh bool) (string, error) {
	if err := t.acquire(); err != nil {
		return "", err
	}
	defer t.release()

	e, ok := t.sessions[id]
	if !ok {
		return "", ErrSessionInvalid
	}

	now := time.Now()
	if now.After(e.expiresAt) {
		delete(t.sessions, id)
		return "", ErrSessionExpired
	}

	if refresh {
		e.expiresAt = now.Add(t.ttl)
		t.sessions[id] = e
	}

	return e.login, nil
}

// Revoke безусловно удаляет сессию, в том числе просроченную, но ещё не
// вычищенную запись. Возвращает, была ли запись в таблице.
func (t *Table) Revoke(id model.SessionID) (bool, error) {
	if err := t.acquire(); err != nil {
		return false, err
	}
	defer t.release()

	_, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	return ok, nil
}
