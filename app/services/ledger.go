package services

import (
	"context"
	"sync"

	"travorier/app/models"
)

// MemoryLedger is a process-local CreditLedger
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	debited  map[string]bool // identity + "|" + ref
	granted  map[string]bool
}

// NewMemoryLedger creates an empty ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]int64),
		debited:  make(map[string]bool),
		granted:  make(map[string]bool),
	}
}

func (l *MemoryLedger) Balance(_ context.Context, identity string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[identity], nil
}

// Debit removes amount unless ref is already debited for identity
func (l *MemoryLedger) Debit(_ context.Context, identity string, amount int64, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := identity + "|" + ref
	if l.debited[key] {
		return nil
	}
	if l.balances[identity] < amount {
		return models.ErrInsufficientCredit
	}
	l.balances[identity] -= amount
	l.debited[key] = true
	return nil
}

// Refund reverses an outstanding debit for ref; a later Debit with the same ref charges again
func (l *MemoryLedger) Refund(_ context.Context, identity string, amount int64, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := identity + "|" + ref
	if !l.debited[key] {
		return nil
	}
	l.balances[identity] += amount
	delete(l.debited, key)
	return nil
}

// Grant adds purchased credits once per ref
func (l *MemoryLedger) Grant(_ context.Context, identity string, amount int64, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := identity + "|" + ref
	if l.granted[key] {
		return nil
	}
	l.balances[identity] += amount
	l.granted[key] = true
	return nil
}
