package repository

import (
	"errors"
	"sync"
	"testing"

	"github.com/mmeshcher/ledger-system/internal/model"
	"github.com/mmeshcher/ledger-system/internal/password"
	"github.com/shopspring/decimal"
)

func testCreds() password.Hashed {
	return password.Hashed{Digest: "digest", Salt: "salt"}
}

func TestCreate_Duplicate(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.Create("alice", testCreds()); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := repo.Create("alice", testCreds()); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("err = %v, want ErrAccountExists", err)
	}
}

func TestCreate_ConcurrentSameLogin(t *testing.T) {
	repo := NewMemoryRepository()

	const workers = 16
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create("alice", testCreds())
		}(i)
	}
	wg.Wait()

	var created int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrAccountExists):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 {
		t.Fatalf("created = %d, want exactly 1", created)
	}
}

func TestCredentials(t *testing.T) {
	repo := NewMemoryRepository()

	creds := password.Hashed{Digest: "d", Salt: "s"}
	if err := repo.Create("alice", creds); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, err := repo.Credentials("alice")
	if err != nil {
		t.Fatalf("Credentials error: %v", err)
	}
	if got != creds {
		t.Fatalf("creds = %+v, want %+v", got, creds)
	}
}

func TestSwapSession(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.Create("alice", testCreds()); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	prev, err := repo.SwapSession("alice", 42)
	if err != nil {
		t.Fatalf("SwapSession error: %v", err)
	}
	if prev != model.SessionNone {
		t.Fatalf("prev = %d, want SessionNone for a fresh account", prev)
	}

	prev, err = repo.SwapSession("alice", 99)
	if err != nil {
		t.Fatalf("SwapSession error: %v", err)
	}
	if prev != 42 {
		t.Fatalf("prev = %d, want 42", prev)
	}
}

func TestAppend_BalanceMatchesLog(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.Create("alice", testCreds()); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	amounts := []string{"10.00", "-3.50", "0.05", "-10.00"}
	for _, a := range amounts {
		if _, err := repo.Append("alice", decimal.RequireFromString(a)); err != nil {
			t.Fatalf("Append(%s) error: %v", a, err)
		}
	}

	balance, err := repo.Balance("alice")
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}

	log, err := repo.Transactions("alice")
	if err != nil {
		t.Fatalf("Transactions error: %v", err)
	}
	if len(log) != len(amounts) {
		t.Fatalf("log length = %d, want %d", len(log), len(amounts))
	}

	sum := decimal.Zero
	for _, tx := range log {
		sum = sum.Add(tx.Amount)
	}
	if !balance.Equal(sum) {
		t.Fatalf("balance = %s, sum of log = %s", balance, sum)
	}
	if want := decimal.RequireFromString("-3.45"); !balance.Equal(want) {
		t.Fatalf("balance = %s, want %s", balance, want)
	}
}

func TestAppend_ConcurrentConsistency(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.Create("alice", testCreds()); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	const (
		workers = 8
		rounds  = 50
	)
	step := decimal.RequireFromString("0.25")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if _, err := repo.Append("alice", step); err != nil {
					t.Errorf("Append error: %v", err)
					return
				}
			}
		}()
	}

	// Параллельный читатель: каждый снимок журнала из n одинаковых проводок
	// обязан суммироваться ровно в n шагов — частично записанных проводок
	// не бывает.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < rounds; j++ {
			log, err := repo.Transactions("alice")
			if err != nil {
				t.Errorf("Transactions error: %v", err)
				return
			}
			sum := decimal.Zero
			for _, tx := range log {
				sum = sum.Add(tx.Amount)
			}
			if want := step.Mul(decimal.NewFromInt(int64(len(log)))); !sum.Equal(want) {
				t.Errorf("snapshot of %d transactions sums to %s, want %s", len(log), sum, want)
				return
			}
		}
	}()
	wg.Wait()

	balance, err := repo.Balance("alice")
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	want := step.Mul(decimal.NewFromInt(workers * rounds))
	if !balance.Equal(want) {
		t.Fatalf("balance = %s, want %s", balance, want)
	}

	log, err := repo.Transactions("alice")
	if err != nil {
		t.Fatalf("Transactions error: %v", err)
	}
	if len(log) != workers*rounds {
		t.Fatalf("log length = %d, want %d", len(log), workers*rounds)
	}
}

func TestTransactions_DefensiveCopy(t *testing.T) {
	repo := NewMemoryRepository()

	if err := repo.Create("alice", testCreds()); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := repo.Append("alice", decimal.RequireFromString("10.00")); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	snapshot, err := repo.Transactions("alice")
	if err != nil {
		t.Fatalf("Transactions error: %v", err)
	}
	snapshot[0].Amount = decimal.RequireFromString("999")

	fresh, err := repo.Transactions("alice")
	if err != nil {
		t.Fatalf("Transactions error: %v", err)
	}
	if want := decimal.RequireFromString("10.00"); !fresh[0].Amount.Equal(want) {
		t.Fatalf("stored amount = %s, want %s: snapshot mutation leaked into the log", fresh[0].Amount, want)
	}
}

func TestUnknownLogin(t *testing.T) {
	repo := NewMemoryRepository()

	if _, err := repo.Credentials("ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("Credentials err = %v, want ErrAccountNotFound", err)
	}
	if _, err := repo.SwapSession("ghost", 1); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("SwapSession err = %v, want ErrAccountNotFound", err)
	}
	if _, err := repo.Append("ghost", decimal.Zero); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("Append err = %v, want ErrAccountNotFound", err)
	}
	if _, err := repo.Balance("ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("Balance err = %v, want ErrAccountNotFound", err)
	}
	if _, err := repo.Transactions("ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("Transactions err = %v, want ErrAccountNotFound", err)
	}
}
