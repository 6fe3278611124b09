package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"travorier/app/metrics"
	"travorier/app/models"
)

// DefaultUnlockPrice is the credit cost of revealing contact details for one match
const DefaultUnlockPrice int64 = 1

// UnlockService spends credit to open contact for a match, at most once per match
type UnlockService struct {
	store  MatchStore
	ledger CreditLedger
	locker Locker
	price  int64
	now    Clock
	logger zerolog.Logger
}

// NewUnlockService creates a new unlock service instance. locker must be shared
// with the MatchService so unlock and accept on one match are serialized.
func NewUnlockService(store MatchStore, ledger CreditLedger, locker Locker, price int64, now Clock, logger zerolog.Logger) *UnlockService {
	if locker == nil {
		locker = NewKeyedLocker()
	}
	if price <= 0 {
		price = DefaultUnlockPrice
	}
	if now == nil {
		now = time.Now
	}
	return &UnlockService{
		store:  store,
		ledger: ledger,
		locker: locker,
		price:  price,
		now:    now,
		logger: logger.With().Str("component", "unlock").Logger(),
	}
}

// Price returns the credit cost of one unlock
func (s *UnlockService) Price() int64 {
	return s.price
}

// unlockRef attributes a ledger debit to exactly one match
func unlockRef(matchID string) string {
	return "unlock:" + matchID
}

// Unlock debits identity and flips the match's contact flag. Calling it again
// on an unlocked match returns the match without a second debit.
func (s *UnlockService) Unlock(ctx context.Context, identity, matchID string) (*models.Match, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(identity) {
		return nil, models.ErrNotParticipant
	}
	if match.ContactUnlocked {
		metrics.Unlocks.WithLabelValues("noop").Inc()
		return match, nil
	}

	release, err := s.locker.Lock(ctx, matchLockKey(matchID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock match %s: %w", matchID, err)
	}
	defer release()

	// Debit and flip run to completion even if the caller gives up waiting.
	ctx = context.WithoutCancel(ctx)

	match, err = s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.ContactUnlocked {
		metrics.Unlocks.WithLabelValues("noop").Inc()
		return match, nil
	}
	if match.Status == models.MatchStatusRejected {
		return nil, models.ErrInvalidTransition.WithMessage("match was rejected")
	}

	ref := unlockRef(matchID)
	if err := s.ledger.Debit(ctx, identity, s.price, ref); err != nil {
		if errors.Is(err, models.ErrInsufficientCredit) {
			metrics.Unlocks.WithLabelValues("insufficient_credit").Inc()
			return nil, err
		}
		metrics.Unlocks.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to debit credit for match %s: %w", matchID, err)
	}

	now := s.now().UTC()
	applied, err := s.store.MarkUnlocked(ctx, matchID, identity, now)
	if err != nil || !applied {
		if refundErr := s.ledger.Refund(ctx, identity, s.price, ref); refundErr != nil {
			s.logger.Error().Err(refundErr).Str("match_id", matchID).Str("identity", identity).
				Msg("failed to refund unlock debit")
		}
		if err != nil {
			metrics.Unlocks.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to unlock match %s: %w", matchID, err)
		}
		// Another writer flipped the flag first; its debit is the one that counts.
		metrics.Unlocks.WithLabelValues("noop").Inc()
		return s.store.GetMatch(ctx, matchID)
	}

	match.ContactUnlocked = true
	match.UnlockedBy = identity
	match.UnlockedAt = &now
	match.UpdatedAt = now

	metrics.Unlocks.WithLabelValues("debited").Inc()
	s.logger.Info().Str("match_id", matchID).Str("by", identity).Int64("credits", s.price).Msg("contact unlocked")
	return match, nil
}

// Balance returns identity's remaining credits
func (s *UnlockService) Balance(ctx context.Context, identity string) (int64, error) {
	balance, err := s.ledger.Balance(ctx, identity)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance for %s: %w", identity, err)
	}
	return balance, nil
}

// GrantCredits adds purchased credits to identity once per reference
func (s *UnlockService) GrantCredits(ctx context.Context, identity string, amount int64, ref string) (int64, error) {
	if identity == "" {
		return 0, models.ErrInvalidField.WithField("user_id").WithMessage("user_id is required")
	}
	if amount <= 0 {
		return 0, models.ErrInvalidField.WithField("amount").WithMessage("amount must be positive")
	}
	if ref == "" {
		return 0, models.ErrInvalidField.WithField("reference").WithMessage("reference is required")
	}
	if err := s.ledger.Grant(ctx, identity, amount, "grant:"+ref); err != nil {
		return 0, fmt.Errorf("failed to grant credits to %s: %w", identity, err)
	}
	s.logger.Info().Str("identity", identity).Int64("amount", amount).Str("ref", ref).Msg("credits granted")
	return s.Balance(ctx, identity)
}
