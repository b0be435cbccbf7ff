package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"nestegg/internal/core"
	applog "nestegg/internal/log"
	"nestegg/internal/ports"
)

// ErrInvalidInput marks errors caused by the caller's data.
var ErrInvalidInput = errors.New("invalid input")

// BalancePublisher announces balance writes to other processes.
type BalancePublisher interface {
	PublishBalanceRecorded(ctx context.Context, userID, accountID, balanceID string, asOf time.Time) error
}

// Invalidator drops cached derived views for a user.
type Invalidator interface {
	Invalidate(userID string)
}

// AccountService validates and persists connections, accounts, balances and
// transactions. Every write invalidates the user's cached overview, and
// balance writes are announced on the message bus on a best-effort basis.
type AccountService struct {
	store     ports.Store
	publisher BalancePublisher
	cache     Invalidator
	closers   []io.Closer
	logger    *applog.StructuredLogger
	newID     func() string
}

// NewAccountService wires the service. publisher and cache may be nil.
func NewAccountService(store ports.Store, publisher BalancePublisher, cache Invalidator) *AccountService {
	logger := applog.New(applog.Config{
		Component: applog.ComponentAccount,
		Handler:   slog.Default().Handler(),
	})
	return &AccountService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		logger:    applog.NewStructuredLogger(logger),
		newID:     uuid.NewString,
	}
}

// OnClose registers resources released by Close, in order.
func (s *AccountService) OnClose(c io.Closer) {
	if c != nil {
		s.closers = append(s.closers, c)
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

func (s *AccountService) ListConnections(ctx context.Context, userID string) ([]core.Connection, error) {
	return s.store.ListConnections(ctx, userID)
}

func (s *AccountService) CreateConnection(ctx context.Context, userID string, c core.Connection) (core.Connection, error) {
	c.ID = s.newID()
	c.UserID = userID
	c.Provider = strings.TrimSpace(c.Provider)
	if err := c.Validate(); err != nil {
		return core.Connection{}, invalid(err)
	}
	created, err := s.store.CreateConnection(ctx, c)
	if err != nil {
		return core.Connection{}, fmt.Errorf("save connection: %w", err)
	}
	return created, nil
}

// ListAccounts returns the user's accounts newest first, optionally limited
// to one connection.
func (s *AccountService) ListAccounts(ctx context.Context, userID, connectionID string) ([]core.Account, error) {
	if connectionID != "" {
		return s.store.ListAccountsByConnection(ctx, userID, connectionID)
	}
	return s.store.ListAccounts(ctx, userID)
}

func (s *AccountService) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	return s.store.GetAccount(ctx, userID, id)
}

// CreateAccount stores a new account under an existing connection of the
// user. Balances supplied with the account are recorded as its history; if
// one of them cannot be stored the account is removed again.
func (s *AccountService) CreateAccount(ctx context.Context, userID string, a core.Account) (core.Account, error) {
	a.ID = s.newID()
	a.UserID = userID
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return core.Account{}, invalid(err)
	}
	if _, err := s.store.GetConnection(ctx, userID, a.ConnectionID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Account{}, invalid(fmt.Errorf("unknown connection %q", a.ConnectionID))
		}
		return core.Account{}, fmt.Errorf("load connection: %w", err)
	}

	history := a.Balances
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}

	for _, b := range history {
		p, err := s.RecordBalance(ctx, userID, created.ID, b)
		if err != nil {
			s.discardAccount(ctx, userID, created.ID)
			return core.Account{}, err
		}
		created.Balances = append(created.Balances, p)
	}
	s.logger.LogAccountCreated(ctx, userID, created.ID, string(created.Type), string(created.Category()))
	s.invalidate(userID)
	return created, nil
}

// discardAccount removes a partly written account together with the points
// already stored for it.
func (s *AccountService) discardAccount(ctx context.Context, userID, id string) {
	if err := s.store.DeleteAccount(context.WithoutCancel(ctx), userID, id); err != nil {
		slog.ErrorContext(ctx, "Failed to remove partly created account",
			applog.FieldUserID, userID,
			applog.FieldAccountID, id,
			applog.FieldError, err)
	}
	s.invalidate(userID)
}

func (s *AccountService) DeleteAccount(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteAccount(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// ListBalances returns the account's history since the given instant, oldest first.
func (s *AccountService) ListBalances(ctx context.Context, userID, accountID string, since time.Time) ([]core.BalancePoint, error) {
	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListBalances(ctx, accountID, since)
}

// LatestBalance returns nil when the account has no history.
func (s *AccountService) LatestBalance(ctx context.Context, userID, accountID string) (*core.BalancePoint, error) {
	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.store.LatestBalance(ctx, accountID)
}

// RecordBalance upserts a point for the account and publishes a
// balance.recorded event. Publishing failures are logged and never returned.
func (s *AccountService) RecordBalance(ctx context.Context, userID, accountID string, b core.BalancePoint) (core.BalancePoint, error) {
	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return core.BalancePoint{}, err
	}
	b.ID = s.newID()
	b.AccountID = accountID
	if err := b.Validate(); err != nil {
		return core.BalancePoint{}, invalid(err)
	}

	saved, err := s.store.UpsertBalance(ctx, b)
	if err != nil {
		return core.BalancePoint{}, fmt.Errorf("save balance: %w", err)
	}
	s.invalidate(userID)
	s.logger.LogBalanceRecorded(ctx, userID, accountID, saved.AsOf.Format(time.RFC3339), saved.Current.String())

	if err := s.publish(ctx, userID, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish balance recorded message",
			applog.FieldUserID, userID,
			applog.FieldAccountID, accountID,
			applog.FieldError, err)
	}
	return saved, nil
}

func (s *AccountService) publish(ctx context.Context, userID string, b core.BalancePoint) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping balance message")
		return nil
	}
	return s.publisher.PublishBalanceRecorded(ctx, userID, b.AccountID, b.ID, b.AsOf)
}

// ListTransactions returns the account's transactions, newest first.
func (s *AccountService) ListTransactions(ctx context.Context, userID, accountID string) ([]core.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, accountID)
}

func (s *AccountService) CreateTransaction(ctx context.Context, userID, accountID string, t core.Transaction) (core.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, userID, accountID); err != nil {
		return core.Transaction{}, err
	}
	t.ID = s.newID()
	t.AccountID = accountID
	if err := t.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}
	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(userID)
	return saved, nil
}

func (s *AccountService) invalidate(userID string) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}

// Close releases everything registered with OnClose and reports all failures.
func (s *AccountService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close account service: %w", errors.Join(errs...))
	}
	return nil
}
