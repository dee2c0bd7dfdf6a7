// Package cli реализует строковый терминальный интерфейс леджера.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/ledger-system/internal/model"
	"github.com/mmeshcher/ledger-system/internal/repository"
	"github.com/mmeshcher/ledger-system/internal/service"
	"github.com/mmeshcher/ledger-system/internal/session"
	"github.com/mmeshcher/ledger-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой терминалом.
type Service interface {
	CreateAccount(login, password string) error
	Login(login, password string) (model.SessionID, error)
	Logout(sid model.SessionID) error
	Balance(sid model.SessionID) (decimal.Decimal, error)
	Deposit(sid model.SessionID, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(sid model.SessionID, amount decimal.Decimal) (decimal.Decimal, error)
	History(sid model.SessionID) ([]model.Transaction, error)
}

// Handler читает команды из потока ввода построчно и выполняет их через
// сервис. Терминал обслуживает одного пользователя и держит не более одной
// текущей сессии.
type Handler struct {
	service Service
	logger  *zap.Logger
	in      io.Reader
	out     io.Writer

	session model.SessionID
}

// NewHandler создаёт новый терминал поверх указанных потоков ввода и вывода.
func NewHandler(s Service, logger *zap.Logger, in io.Reader, out io.Writer) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
		in:      in,
		out:     out,
		session: model.SessionNone,
	}
}

// Run выполняет команды до конца ввода, команды exit или отмены контекста.
// Чтение идёт в отдельной горутине: Scan может навсегда застрять на
// блокирующем чтении терминала, поэтому при отмене контекста цикл
// завершается, не дожидаясь её.
func (h *Handler) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(h.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
		close(lines)
	}()

	h.println("account ledger, type 'help' for commands")

	for {
		h.print("> ")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-errc; err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				return nil
			}
			if !h.execute(line) {
				return nil
			}
		}
	}
}

// execute выполняет одну команду; false означает выход из цикла.
func (h *Handler) execute(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "exit", "quit":
		return false
	case "help":
		h.printHelp()
	case "register":
		h.register(args)
	case "login":
		h.login(args)
	case "logout":
		h.logout()
	case "balance":
		h.balance()
	case "deposit":
		h.deposit(args)
	case "withdraw":
		h.withdraw(args)
	case "history":
		h.history()
	default:
		h.println("unknown command, type 'help' for commands")
	}
	return true
}

func (h *Handler) register(args []string) {
	if len(args) != 2 {
		h.println("usage: register <login> <password>")
		return
	}

	if err := h.service.CreateAccount(args[0], args[1]); err != nil {
		h.printError(err)
		return
	}
	h.println("account created")
}

func (h *Handler) login(args []string) {
	if len(args) != 2 {
		h.println("usage: login <login> <password>")
		return
	}

	sid, err := h.service.Login(args[0], args[1])
	if err != nil {
		h.printError(err)
		return
	}

	// Прежняя сессия терминала больше не нужна, молча отзываем её.
	if h.session.Valid() {
		_ = h.service.Logout(h.session)
	}

	h.session = sid
	h.println("logged in")
}

func (h *Handler) logout() {
	if !h.session.Valid() {
		h.println("not logged in")
		return
	}

	err := h.service.Logout(h.session)
	h.session = model.SessionNone
	if err != nil {
		h.printError(err)
		return
	}
	h.println("logged out")
}

func (h *Handler) balance() {
	if !h.session.Valid() {
		h.println("not logged in")
		return
	}

	balance, err := h.service.Balance(h.session)
	if err != nil {
		h.printError(err)
		return
	}
	h.println("balance: " + balance.StringFixed(2))
}

func (h *Handler) deposit(args []string) {
	if len(args) != 1 {
		h.println("usage: deposit <amount>")
		return
	}
	if !h.session.Valid() {
		h.println("not logged in")
		return
	}

	amount, err := validation.ParseAmount(args[0])
	if err != nil {
		h.println("malformed amount, expected digits with up to two decimals")
		return
	}

	balance, err := h.service.Deposit(h.session, amount)
	if err != nil {
		h.printError(err)
		return
	}
	h.println("balance: " + balance.StringFixed(2))
}

func (h *Handler) withdraw(args []string) {
	if len(args) != 1 {
		h.println("usage: withdraw <amount>")
		return
	}
	if !h.session.Valid() {
		h.println("not logged in")
		return
	}

	amount, err := validation.ParseAmount(args[0])
	if err != nil {
		h.println("malformed amount, expected digits with up to two decimals")
		return
	}

	balance, err := h.service.Withdraw(h.session, amount)
	if err != nil {
		h.printError(err)
		return
	}
	h.println("balance: " + balance.StringFixed(2))
}

func (h *Handler) history() {
	if !h.session.Valid() {
		h.println("not logged in")
		return
	}

	transactions, err := h.service.History(h.session)
	if err != nil {
		h.printError(err)
		return
	}
	if len(transactions) == 0 {
		h.println("no transactions")
		return
	}
	for _, tx := range transactions {
		h.println(tx.CreatedAt.Format(time.RFC3339) + "  " + formatSigned(tx.Amount))
	}
}

// printError переводит ошибку сервиса в сообщение пользователю. Истёкшая
// сессия сообщается отдельно от прочих отказов, чтобы пользователь вошёл
// заново, а не повторял команду вслепую.
func (h *Handler) printError(err error) {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		h.session = model.SessionNone
		h.println("session expired, please log in again")
	case errors.Is(err, session.ErrSessionInvalid):
		h.session = model.SessionNone
		h.println("session is not valid, please log in again")
	case errors.Is(err, session.ErrLockTimeout):
		h.println("ledger is busy, try again")
	case errors.Is(err, service.ErrInvalidCredentials):
		h.println("invalid login or password")
	case errors.Is(err, service.ErrEmptyCredentials):
		h.println("login and password must not be empty")
	case errors.Is(err, service.ErrInvalidAmount):
		h.println("invalid amount")
	case errors.Is(err, service.ErrSessionNotFound):
		h.println("session already closed")
	case errors.Is(err, repository.ErrAccountExists):
		h.println("login is already taken")
	case errors.Is(err, repository.ErrAccountNotFound):
		h.println("account not found")
	default:
		h.logger.Error("command error", zap.Error(err))
		h.println("internal error")
	}
}

func (h *Handler) printHelp() {
	h.println(`commands:
  register <login> <password>  create a new account
  login <login> <password>     open a session
  logout                       close the current session
  balance                      show the current balance
  deposit <amount>             add funds
  withdraw <amount>            withdraw funds
  history                      list transactions
  help                         show this help
  exit                         quit`)
}

func (h *Handler) print(s string) {
	fmt.Fprint(h.out, s)
}

func (h *Handler) println(s string) {
	fmt.Fprintln(h.out, s)
}

func formatSigned(amount decimal.Decimal) string {
	if amount.Sign() > 0 {
		return "+" + amount.StringFixed(2)
	}
	return amount.StringFixed(2)
}
