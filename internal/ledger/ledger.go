// Package ledger orchestrates the decaying-balance ledger: every mutating
// operation first settles pending decay for the touched account through one
// shared path, applies its own effect, and keeps the token's total supply
// equal to the sum of settled balances.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"decay-ledger/internal/decay"
	"decay-ledger/internal/domain"
	"decay-ledger/internal/idhash"
	"decay-ledger/internal/storage"
)

// MaxMemoLen is the longest allowed memo, in bytes.
const MaxMemoLen = 256

// EventSink receives committed ledger events for live delivery. Publish
// must not block; slow consumers are the sink's problem.
type EventSink interface {
	Publish(e *domain.LedgerEvent)
}

// Options carries the optional collaborators of a Ledger.
type Options struct {
	// Events is the append-only journal. Nil disables journaling.
	Events storage.EventStore
	// Sink receives committed events for live delivery. Nil disables it.
	Sink EventSink
	// Tx scopes multi-row mutations to one atomic unit. Nil runs writes
	// directly against the stores; that is safe only for backends whose
	// writes cannot fail between two rows, like the in-memory stores.
	Tx storage.TxRunner
	// Now supplies the host clock, Unix seconds. Defaults to time.Now.
	// The ledger trusts it to be monotonic non-decreasing across calls
	// for the same account.
	Now func() int64
	// Logger receives journal append failures. Nil disables logging.
	Logger *log.Logger
}

// Ledger applies operations over one balance store and one supply store.
//
// Operations are serialized through one mutex: the execution model is
// single-writer, one operation at a time, each running to completion or
// aborting with no semantic effect. Every operation that writes both a
// supply row and a balance row runs those writes through the transaction
// runner, so a failure between them rolls the whole operation back.
type Ledger struct {
	mu       sync.Mutex
	balances storage.BalanceStore
	supplies storage.SupplyStore
	events   storage.EventStore
	sink     EventSink
	tx       storage.TxRunner
	now      func() int64
	logger   *log.Logger

	// seq and nonce feed the event ID hash. seq orders events within the
	// process; nonce is drawn at startup so a restarted process cannot
	// reproduce an ID minted for an identical operation in the same second.
	seq   uint64
	nonce uint64
}

// New creates a Ledger over the given stores.
func New(balances storage.BalanceStore, supplies storage.SupplyStore, opts Options) *Ledger {
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	var nb [8]byte
	rand.Read(nb[:])

	return &Ledger{
		balances: balances,
		supplies: supplies,
		events:   opts.Events,
		sink:     opts.Sink,
		tx:       opts.Tx,
		now:      now,
		logger:   opts.Logger,
		nonce:    binary.BigEndian.Uint64(nb[:]),
	}
}

// writeTx runs fn inside the configured transaction scope, or directly
// against the stores when no runner is configured.
func (l *Ledger) writeTx(ctx context.Context, fn func(bs storage.BalanceStore, ss storage.SupplyStore) error) error {
	if l.tx != nil {
		return l.tx.WithinTx(ctx, fn)
	}
	return fn(l.balances, l.supplies)
}

// Create registers a new token for (tenant, maxSupply.Symbol) with zero
// supply. A negative max supply amount makes the token mintable (uncapped).
func (l *Ledger) Create(ctx context.Context, tenant, issuer string, maxSupply domain.Asset, decayPeriod int64, ratePPTM uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tenant == "" || issuer == "" {
		return fmt.Errorf("%w: tenant and issuer are required", ErrValidation)
	}
	if !maxSupply.Symbol.IsValid() {
		return fmt.Errorf("%w: invalid symbol name", ErrValidation)
	}
	if !maxSupply.IsValid() {
		return fmt.Errorf("%w: invalid supply", ErrValidation)
	}
	if decayPeriod < 0 {
		return fmt.Errorf("%w: invalid decay period", ErrValidation)
	}
	if ratePPTM > domain.MaxDecayRatePPTM {
		return fmt.Errorf("%w: decay rate must be between 0 and %d parts per ten million", ErrValidation, domain.MaxDecayRatePPTM)
	}

	cfg := &domain.TokenConfig{
		Tenant:        tenant,
		Issuer:        issuer,
		Supply:        domain.Asset{Amount: 0, Symbol: maxSupply.Symbol},
		MaxSupply:     maxSupply,
		DecayPeriod:   decayPeriod,
		DecayRatePPTM: ratePPTM,
	}
	if err := l.supplies.Create(ctx, cfg); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("%w: token with symbol already exists", ErrConflict)
		}
		return fmt.Errorf("create token config: %w", err)
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:        tenant,
		SymbolCode:    maxSupply.Symbol.Code,
		Type:          domain.EventCreate,
		To:            issuer,
		Amount:        maxSupply.Amount,
		Precision:     maxSupply.Symbol.Precision,
		DecayPeriod:   decayPeriod,
		DecayRatePPTM: ratePPTM,
	})
	return nil
}

// Issue creates quantity new units for the issuer. Tokens can only be
// issued to the issuer account; moving them onward is Transfer's job.
func (l *Ledger) Issue(ctx context.Context, tenant, to string, quantity domain.Asset, memo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !quantity.Symbol.IsValid() {
		return fmt.Errorf("%w: invalid symbol name", ErrValidation)
	}
	if len(memo) > MaxMemoLen {
		return fmt.Errorf("%w: memo has more than %d bytes", ErrValidation, MaxMemoLen)
	}

	cfg, err := l.getConfig(ctx, tenant, quantity.Symbol.Code)
	if err != nil {
		return err
	}
	if to != cfg.Issuer {
		return fmt.Errorf("%w: tokens can only be issued to issuer account", ErrAuthorization)
	}
	if err := validQuantity(quantity, cfg); err != nil {
		return err
	}
	if !cfg.Mintable() && quantity.Amount > cfg.MaxSupply.Amount-cfg.Supply.Amount {
		return fmt.Errorf("%w: quantity exceeds available supply", ErrSupplyCapExceeded)
	}

	err = l.writeTx(ctx, func(bs storage.BalanceStore, ss storage.SupplyStore) error {
		if err := ss.AdjustSupply(ctx, tenant, quantity.Symbol.Code, quantity.Amount); err != nil {
			if errors.Is(err, storage.ErrSupplyOutOfRange) {
				return fmt.Errorf("%w: quantity exceeds available supply", ErrSupplyCapExceeded)
			}
			return fmt.Errorf("adjust supply: %w", err)
		}
		return l.addBalance(ctx, bs, ss, cfg, cfg.Issuer, quantity)
	})
	if err != nil {
		return err
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:     tenant,
		SymbolCode: quantity.Symbol.Code,
		Type:       domain.EventIssue,
		To:         cfg.Issuer,
		Amount:     quantity.Amount,
		Precision:  quantity.Symbol.Precision,
		Memo:       memo,
	})
	return nil
}

// Transfer moves quantity from one account to another. Only the issuer may
// move this token; it models a non-transferable credit, not a currency.
func (l *Ledger) Transfer(ctx context.Context, tenant, from, to string, quantity domain.Asset, memo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if from == to {
		return fmt.Errorf("%w: cannot transfer to self", ErrPrecondition)
	}
	if from == "" || to == "" {
		return fmt.Errorf("%w: from and to are required", ErrValidation)
	}
	if len(memo) > MaxMemoLen {
		return fmt.Errorf("%w: memo has more than %d bytes", ErrValidation, MaxMemoLen)
	}

	cfg, err := l.getConfig(ctx, tenant, quantity.Symbol.Code)
	if err != nil {
		return err
	}
	if from != cfg.Issuer {
		return fmt.Errorf("%w: tokens can only be transferred by issuer account", ErrAuthorization)
	}
	if err := validQuantity(quantity, cfg); err != nil {
		return err
	}

	err = l.writeTx(ctx, func(bs storage.BalanceStore, ss storage.SupplyStore) error {
		if err := l.subBalance(ctx, bs, ss, cfg, from, quantity); err != nil {
			return err
		}
		return l.addBalance(ctx, bs, ss, cfg, to, quantity)
	})
	if err != nil {
		return err
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:     tenant,
		SymbolCode: quantity.Symbol.Code,
		Type:       domain.EventTransfer,
		From:       from,
		To:         to,
		Amount:     quantity.Amount,
		Precision:  quantity.Symbol.Precision,
		Memo:       memo,
	})
	return nil
}

// Burn destroys quantity units held by from, reducing total supply.
// This is a deliberate reduction, separate from decay-driven reduction.
func (l *Ledger) Burn(ctx context.Context, tenant, from string, quantity domain.Asset, memo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if from == "" {
		return fmt.Errorf("%w: from is required", ErrValidation)
	}
	if len(memo) > MaxMemoLen {
		return fmt.Errorf("%w: memo has more than %d bytes", ErrValidation, MaxMemoLen)
	}

	cfg, err := l.getConfig(ctx, tenant, quantity.Symbol.Code)
	if err != nil {
		return err
	}
	if err := validQuantity(quantity, cfg); err != nil {
		return err
	}

	err = l.writeTx(ctx, func(bs storage.BalanceStore, ss storage.SupplyStore) error {
		if err := l.subBalance(ctx, bs, ss, cfg, from, quantity); err != nil {
			return err
		}
		if err := ss.AdjustSupply(ctx, tenant, quantity.Symbol.Code, -quantity.Amount); err != nil {
			return fmt.Errorf("adjust supply: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:     tenant,
		SymbolCode: quantity.Symbol.Code,
		Type:       domain.EventBurn,
		From:       from,
		Amount:     quantity.Amount,
		Precision:  quantity.Symbol.Precision,
		Memo:       memo,
	})
	return nil
}

// Open creates a zero-balance row for (tenant, sym, owner) with the
// checkpoint set to now. Opening an already-open account is a no-op.
func (l *Ledger) Open(ctx context.Context, tenant, owner string, sym domain.Symbol, payer string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if owner == "" || payer == "" {
		return fmt.Errorf("%w: owner and payer are required", ErrValidation)
	}

	cfg, err := l.getConfig(ctx, tenant, sym.Code)
	if err != nil {
		return err
	}
	if cfg.Supply.Symbol != sym {
		return fmt.Errorf("%w: symbol precision mismatch", ErrValidation)
	}

	_, err = l.balances.Get(ctx, tenant, sym.Code, owner)
	if err == nil {
		return nil // already open
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("get balance: %w", err)
	}

	row := &domain.AccountBalance{
		Tenant:              tenant,
		Owner:               owner,
		Balance:             domain.Asset{Amount: 0, Symbol: sym},
		LastDecayCheckpoint: l.now(),
	}
	if err := l.balances.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:     tenant,
		SymbolCode: sym.Code,
		Type:       domain.EventOpen,
		To:         owner,
		Precision:  sym.Precision,
	})
	return nil
}

// Close removes the balance row for (tenant, sym, owner). Pending decay is
// settled first; the row must then hold exactly zero.
func (l *Ledger) Close(ctx context.Context, tenant, owner string, sym domain.Symbol) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.writeTx(ctx, func(bs storage.BalanceStore, ss storage.SupplyStore) error {
		// The config may already be gone (admin delete); close still
		// works, it just has no decay left to settle.
		cfg, err := ss.Get(ctx, tenant, sym.Code)
		if err == nil {
			if _, err := l.flushDecay(ctx, bs, ss, cfg, owner); err != nil {
				return err
			}
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("get token config: %w", err)
		}

		row, err := bs.Get(ctx, tenant, sym.Code, owner)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: balance row already deleted or never existed", ErrNotFound)
			}
			return fmt.Errorf("get balance: %w", err)
		}
		if row.Balance.Amount != 0 {
			return fmt.Errorf("%w: cannot close because the balance is not zero", ErrConflict)
		}

		if err := bs.Delete(ctx, tenant, sym.Code, owner); err != nil {
			return fmt.Errorf("delete balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:     tenant,
		SymbolCode: sym.Code,
		Type:       domain.EventClose,
		From:       owner,
		Precision:  sym.Precision,
	})
	return nil
}

// DecayAccount settles pending decay for (tenant, sym, owner) and commits
// it, adjusting total supply in the same step. An account that does not
// exist is a silent no-op so repeated settlement calls are safe.
func (l *Ledger) DecayAccount(ctx context.Context, tenant, owner string, sym domain.Symbol) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.getConfig(ctx, tenant, sym.Code)
	if err != nil {
		return err
	}

	var delta int64
	err = l.writeTx(ctx, func(bs storage.BalanceStore, ss storage.SupplyStore) error {
		delta, err = l.flushDecay(ctx, bs, ss, cfg, owner)
		return err
	})
	if err != nil {
		return err
	}
	if delta != 0 {
		l.emit(ctx, &domain.LedgerEvent{
			Tenant:     tenant,
			SymbolCode: sym.Code,
			Type:       domain.EventDecay,
			From:       owner,
			Amount:     -delta, // amount removed by decay
			Precision:  sym.Precision,
		})
	}
	return nil
}

// SetDecayParameters replaces the token's decay period and rate. The new
// parameters apply from the next decay evaluation; no retroactive recompute.
func (l *Ledger) SetDecayParameters(ctx context.Context, tenant string, sym domain.Symbol, period int64, ratePPTM uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if period < 0 {
		return fmt.Errorf("%w: invalid decay period", ErrValidation)
	}
	if ratePPTM > domain.MaxDecayRatePPTM {
		return fmt.Errorf("%w: decay rate must be between 0 and %d parts per ten million", ErrValidation, domain.MaxDecayRatePPTM)
	}

	if err := l.supplies.SetDecayParameters(ctx, tenant, sym.Code, period, ratePPTM); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: token with symbol does not exist", ErrNotFound)
		}
		return fmt.Errorf("set decay parameters: %w", err)
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:        tenant,
		SymbolCode:    sym.Code,
		Type:          domain.EventSetDecay,
		Precision:     sym.Precision,
		DecayPeriod:   period,
		DecayRatePPTM: ratePPTM,
	})
	return nil
}

// DeleteToken removes the token config. Destructive admin operation;
// outstanding balance rows are not checked.
func (l *Ledger) DeleteToken(ctx context.Context, tenant string, sym domain.Symbol) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !sym.IsValid() {
		return fmt.Errorf("%w: invalid symbol name", ErrValidation)
	}

	if err := l.supplies.Delete(ctx, tenant, sym.Code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: token with symbol does not exist", ErrNotFound)
		}
		return fmt.Errorf("delete token config: %w", err)
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:     tenant,
		SymbolCode: sym.Code,
		Type:       domain.EventDeleteToken,
		Precision:  sym.Precision,
	})
	return nil
}

// DeleteBalance forcibly removes an account row, forfeiting whatever is
// left on it. The forfeited amount is debited from total supply so the
// sum invariant survives. Destructive admin operation.
func (l *Ledger) DeleteBalance(ctx context.Context, tenant, owner string, sym domain.Symbol) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.getConfig(ctx, tenant, sym.Code)
	if err != nil {
		return err
	}

	var forfeited int64
	err = l.writeTx(ctx, func(bs storage.BalanceStore, ss storage.SupplyStore) error {
		// Settle decay first so the forfeited amount is the settled one.
		if _, err := l.flushDecay(ctx, bs, ss, cfg, owner); err != nil {
			return err
		}

		row, err := bs.Get(ctx, tenant, sym.Code, owner)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: no balance object found", ErrNotFound)
			}
			return fmt.Errorf("get balance: %w", err)
		}
		forfeited = row.Balance.Amount

		if forfeited > 0 {
			if err := ss.AdjustSupply(ctx, tenant, sym.Code, -forfeited); err != nil {
				return fmt.Errorf("adjust supply: %w", err)
			}
		}
		if err := bs.Delete(ctx, tenant, sym.Code, owner); err != nil {
			return fmt.Errorf("delete balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.emit(ctx, &domain.LedgerEvent{
		Tenant:     tenant,
		SymbolCode: sym.Code,
		Type:       domain.EventDeleteBalance,
		From:       owner,
		Amount:     forfeited,
		Precision:  sym.Precision,
	})
	return nil
}

// GetBalance returns the owner's balance as of now, with pending decay
// applied to the returned amount only. Nothing is persisted: reads are
// side-effect free, DecayAccount is the persisting settlement.
func (l *Ledger) GetBalance(ctx context.Context, tenant, owner, symbolCode string) (domain.Asset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.getConfig(ctx, tenant, symbolCode)
	if err != nil {
		return domain.Asset{}, err
	}
	row, err := l.balances.Get(ctx, tenant, symbolCode, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Asset{}, fmt.Errorf("%w: no balance object found", ErrNotFound)
		}
		return domain.Asset{}, fmt.Errorf("get balance: %w", err)
	}

	res := decay.Apply(row.Balance.Amount, row.LastDecayCheckpoint, decay.Config{
		Period:         cfg.DecayPeriod,
		RatePPTM:       cfg.DecayRatePPTM,
		EvaluationTime: l.now(),
	})
	return domain.Asset{Amount: res.NewBalance, Symbol: row.Balance.Symbol}, nil
}

// GetSupply returns total supply as of now: the stored supply minus the
// decay still pending on accounts that have not been touched. Nothing is
// persisted.
func (l *Ledger) GetSupply(ctx context.Context, tenant, symbolCode string) (domain.Asset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, err := l.getConfig(ctx, tenant, symbolCode)
	if err != nil {
		return domain.Asset{}, err
	}

	rows, err := l.balances.ListByToken(ctx, tenant, symbolCode)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("list balances: %w", err)
	}

	evalTime := l.now()
	pending := int64(0)
	for _, row := range rows {
		res := decay.Apply(row.Balance.Amount, row.LastDecayCheckpoint, decay.Config{
			Period:         cfg.DecayPeriod,
			RatePPTM:       cfg.DecayRatePPTM,
			EvaluationTime: evalTime,
		})
		if res.NeedsUpdate {
			pending += row.Balance.Amount - res.NewBalance
		}
	}

	return domain.Asset{Amount: cfg.Supply.Amount - pending, Symbol: cfg.Supply.Symbol}, nil
}

// getConfig fetches a token config, mapping storage errors to the
// operation taxonomy.
func (l *Ledger) getConfig(ctx context.Context, tenant, symbolCode string) (*domain.TokenConfig, error) {
	cfg, err := l.supplies.Get(ctx, tenant, symbolCode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: token with symbol does not exist", ErrNotFound)
		}
		return nil, fmt.Errorf("get token config: %w", err)
	}
	return cfg, nil
}

// flushDecay pulls the owner's balance forward to now, committing the new
// balance and checkpoint and adjusting total supply by the decayed delta in
// the same step. A missing account row is a no-op: decay that has happened
// logically but is not yet recorded stays deferred until the row is next
// touched. Returns the (non-positive) balance delta that was applied.
//
// The supply and balance writes belong together; callers run flushDecay
// inside writeTx so a failure between them rolls both back.
func (l *Ledger) flushDecay(ctx context.Context, bs storage.BalanceStore, ss storage.SupplyStore, cfg *domain.TokenConfig, owner string) (int64, error) {
	row, err := bs.Get(ctx, cfg.Tenant, cfg.Supply.Symbol.Code, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil // no balance exists yet, nothing to do
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}

	res := decay.Apply(row.Balance.Amount, row.LastDecayCheckpoint, decay.Config{
		Period:         cfg.DecayPeriod,
		RatePPTM:       cfg.DecayRatePPTM,
		EvaluationTime: l.now(),
	})
	if !res.NeedsUpdate {
		return 0, nil
	}

	delta := res.NewBalance - row.Balance.Amount
	if err := ss.AdjustSupply(ctx, cfg.Tenant, cfg.Supply.Symbol.Code, delta); err != nil {
		return 0, fmt.Errorf("adjust supply for decay: %w", err)
	}
	cfg.Supply.Amount += delta

	row.Balance.Amount = res.NewBalance
	row.LastDecayCheckpoint = res.NewCheckpoint
	if err := bs.Upsert(ctx, row); err != nil {
		return 0, fmt.Errorf("upsert balance: %w", err)
	}
	return delta, nil
}

// addBalance settles decay for the recipient, then credits it. A missing
// row is created with the checkpoint set to now.
func (l *Ledger) addBalance(ctx context.Context, bs storage.BalanceStore, ss storage.SupplyStore, cfg *domain.TokenConfig, owner string, value domain.Asset) error {
	if _, err := l.flushDecay(ctx, bs, ss, cfg, owner); err != nil {
		return err
	}

	row, err := bs.Get(ctx, cfg.Tenant, value.Symbol.Code, owner)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("get balance: %w", err)
		}
		row = &domain.AccountBalance{
			Tenant:              cfg.Tenant,
			Owner:               owner,
			Balance:             value,
			LastDecayCheckpoint: l.now(),
		}
		if err := bs.Upsert(ctx, row); err != nil {
			return fmt.Errorf("upsert balance: %w", err)
		}
		return nil
	}

	row.Balance.Amount += value.Amount
	if err := bs.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// subBalance settles decay for the owner, then debits it.
func (l *Ledger) subBalance(ctx context.Context, bs storage.BalanceStore, ss storage.SupplyStore, cfg *domain.TokenConfig, owner string, value domain.Asset) error {
	if _, err := l.flushDecay(ctx, bs, ss, cfg, owner); err != nil {
		return err
	}

	row, err := bs.Get(ctx, cfg.Tenant, value.Symbol.Code, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: no balance object found", ErrNotFound)
		}
		return fmt.Errorf("get balance: %w", err)
	}
	if row.Balance.Amount < value.Amount {
		return fmt.Errorf("%w: overdrawn balance", ErrInsufficientFunds)
	}

	row.Balance.Amount -= value.Amount
	if err := bs.Upsert(ctx, row); err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}

// validQuantity checks the shared quantity rules for issue/transfer/burn.
func validQuantity(q domain.Asset, cfg *domain.TokenConfig) error {
	if !q.IsValid() {
		return fmt.Errorf("%w: invalid quantity", ErrValidation)
	}
	if q.Amount <= 0 {
		return fmt.Errorf("%w: must use positive quantity", ErrValidation)
	}
	if q.Symbol != cfg.Supply.Symbol {
		return fmt.Errorf("%w: symbol precision mismatch", ErrValidation)
	}
	return nil
}

// emit assigns the event its ID and timestamp, appends it to the journal
// and hands it to the sink. Journal failures are logged, not surfaced: the
// operation's state changes are already committed and the journal is a
// derived record.
func (l *Ledger) emit(ctx context.Context, e *domain.LedgerEvent) {
	l.seq++
	e.OccurredAt = l.now()
	e.EventID = idhash.ComputeEventID(
		e.Tenant, e.SymbolCode, string(e.Type), e.From, e.To, e.Amount, e.OccurredAt, l.nonce, l.seq,
	)

	if l.events != nil {
		if err := l.events.Append(ctx, e); err != nil && l.logger != nil {
			l.logger.Printf("append event %s: %v", e.EventID, err)
		}
	}
	if l.sink != nil {
		l.sink.Publish(e)
	}
}
