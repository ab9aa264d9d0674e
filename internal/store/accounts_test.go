package store

import (
	"errors"
	"sync"
	"testing"
)

func TestDebitCreditAutoProvisions(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	bal, err := st.Credit(ctx, EntryParams{AccountID: "tg-1", Asset: "coins", Amount: 10, EntryType: "manual"})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if bal != 10 {
		t.Fatalf("expected 10, got %d", bal)
	}
	bal, err = st.Debit(ctx, EntryParams{AccountID: "tg-1", Asset: "coins", Amount: 4, EntryType: "wager_debit", RefType: "match", RefID: "room-1"})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if bal != 6 {
		t.Fatalf("expected 6, got %d", bal)
	}

	acc, err := st.GetAccount(ctx, "tg-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acc.Coins != 6 || acc.Gems != 0 {
		t.Fatalf("unexpected account: %+v", acc)
	}

	entries, err := st.ListLedgerEntries(ctx, LedgerFilter{AccountID: "tg-1"}, 10, 0)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Amount != -4 || entries[0].RefID != "room-1" {
		t.Fatalf("unexpected newest entry: %+v", entries[0])
	}
}

func TestDebitInsufficientLeavesNoTrace(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	mustCredit(t, st, ctx, "tg-2", "gems", 3)
	_, err := st.Debit(ctx, EntryParams{AccountID: "tg-2", Asset: "gems", Amount: 5, EntryType: "wager_debit"})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	acc, _ := st.GetAccount(ctx, "tg-2")
	if acc.Gems != 3 {
		t.Fatalf("expected gems unchanged at 3, got %d", acc.Gems)
	}
	entries, _ := st.ListLedgerEntries(ctx, LedgerFilter{AccountID: "tg-2"}, 10, 0)
	if len(entries) != 1 {
		t.Fatalf("expected only the credit entry, got %d", len(entries))
	}
}

func TestRejectsBadInput(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if _, err := st.Credit(ctx, EntryParams{AccountID: "tg-3", Asset: "coins", Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := st.Credit(ctx, EntryParams{AccountID: "tg-3", Asset: "stars", Amount: 1}); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("expected invalid asset, got %v", err)
	}
	if _, err := st.GetAccount(ctx, "tg-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no account to be provisioned, got %v", err)
	}
}

func TestConcurrentDebitsSerialize(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	mustCredit(t, st, ctx, "tg-4", "coins", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.Debit(ctx, EntryParams{AccountID: "tg-4", Asset: "coins", Amount: 1, EntryType: "wager_debit"}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Fatalf("expected exactly 10 successful debits, got %d", ok)
	}
	acc, _ := st.GetAccount(ctx, "tg-4")
	if acc.Coins != 0 {
		t.Fatalf("expected balance 0, got %d", acc.Coins)
	}
	sum, err := st.SumLedger(ctx, "tg-4", "coins")
	if err != nil {
		t.Fatalf("sum ledger: %v", err)
	}
	if sum != acc.Coins {
		t.Fatalf("ledger sum %d != balance %d", sum, acc.Coins)
	}
}

func TestMintRespectsSupplyCap(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if err := st.EnsureSupplyCap(ctx, "gems", 100); err != nil {
		t.Fatalf("ensure cap: %v", err)
	}
	if _, err := st.Mint(ctx, EntryParams{AccountID: "tg-5", Asset: "gems", Amount: 80, EntryType: "manual"}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := st.Mint(ctx, EntryParams{AccountID: "tg-6", Asset: "gems", Amount: 21, EntryType: "manual"}); !errors.Is(err, ErrSupplyCapExceeded) {
		t.Fatalf("expected cap exceeded, got %v", err)
	}
	issued, err := st.SupplyIssued(ctx, "gems")
	if err != nil {
		t.Fatalf("supply issued: %v", err)
	}
	if issued != 80 {
		t.Fatalf("expected issued 80 after rejected mint, got %d", issued)
	}
}

func TestMintWithoutCapIsUnbounded(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	for _, account := range []string{"tg-7", "tg-8"} {
		if _, err := st.Mint(ctx, EntryParams{AccountID: account, Asset: "coins", Amount: 1 << 40, EntryType: "manual"}); err != nil {
			t.Fatalf("mint %s: %v", account, err)
		}
	}
	issued, err := st.SupplyIssued(ctx, "coins")
	if err != nil {
		t.Fatalf("supply issued: %v", err)
	}
	if issued != 2<<40 {
		t.Fatalf("expected issued %d, got %d", int64(2<<40), issued)
	}

	if err := st.EnsureSupplyCap(ctx, "coins", 2<<40); err != nil {
		t.Fatalf("ensure cap: %v", err)
	}
	if _, err := st.Mint(ctx, EntryParams{AccountID: "tg-7", Asset: "coins", Amount: 1, EntryType: "manual"}); !errors.Is(err, ErrSupplyCapExceeded) {
		t.Fatalf("expected cap exceeded once capped, got %v", err)
	}
}
