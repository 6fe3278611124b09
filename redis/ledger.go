package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"travorier/app/models"
)

// KEYS[1] balance, KEYS[2] debit marker; ARGV[1] amount
var debitScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 1
end
local balance = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if balance < amount then
	return -1
end
redis.call('DECRBY', KEYS[1], amount)
redis.call('SET', KEYS[2], amount)
return 0
`)

var refundScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 0 then
	return 0
end
redis.call('INCRBY', KEYS[1], ARGV[1])
redis.call('DEL', KEYS[2])
return 1
`)

// KEYS[2] is the grant marker
var grantScript = redis.NewScript(`
if redis.call('SET', KEYS[2], ARGV[1], 'NX') then
	redis.call('INCRBY', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// Ledger keeps credit balances in Redis. Each debit and grant leaves a
// marker key per reference so replays are no-ops.
type Ledger struct {
	client redis.UniversalClient
}

// NewLedger creates a ledger over client
func NewLedger(client redis.UniversalClient) *Ledger {
	return &Ledger{client: client}
}

func balanceKey(identity string) string { return "credits:balance:" + identity }

func debitKey(identity, ref string) string { return "credits:debit:" + identity + ":" + ref }

func grantKey(identity, ref string) string { return "credits:grant:" + identity + ":" + ref }

func (l *Ledger) Balance(ctx context.Context, identity string) (int64, error) {
	n, err := l.client.Get(ctx, balanceKey(identity)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return n, nil
}

func (l *Ledger) Debit(ctx context.Context, identity string, amount int64, ref string) error {
	res, err := debitScript.Run(ctx, l.client, []string{balanceKey(identity), debitKey(identity, ref)}, amount).Int()
	if err != nil {
		return fmt.Errorf("failed to debit credits: %w", err)
	}
	if res < 0 {
		return models.ErrInsufficientCredit
	}
	return nil
}

func (l *Ledger) Refund(ctx context.Context, identity string, amount int64, ref string) error {
	if err := refundScript.Run(ctx, l.client, []string{balanceKey(identity), debitKey(identity, ref)}, amount).Err(); err != nil {
		return fmt.Errorf("failed to refund credits: %w", err)
	}
	return nil
}

func (l *Ledger) Grant(ctx context.Context, identity string, amount int64, ref string) error {
	if err := grantScript.Run(ctx, l.client, []string{balanceKey(identity), grantKey(identity, ref)}, amount).Err(); err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}
	return nil
}
