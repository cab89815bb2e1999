package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"vendor-ledger/internal/core/domain"
	"vendor-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Wallet Repo ---

// inMemoryWalletRepo mimics the postgres wallet table including the
// version-guarded snapshot update, so optimistic-concurrency behavior is
// exercised for real under concurrent engine calls.
type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet // keyed by vendor ID
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func copyWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	return &c
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	if mtx, ok := tx.(*inMemoryTx); ok {
		mtx.stageCreate(w)
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.wallets[w.VendorID]; ok {
		// Mirrors the unique-violation mapping in the postgres repo.
		return domain.ErrVersionConflict
	}
	r.wallets[w.VendorID] = copyWallet(w)
	return nil
}

func (r *inMemoryWalletRepo) GetByVendorID(ctx context.Context, vendorID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[vendorID]
	if !ok {
		return nil, nil
	}
	return copyWallet(w), nil
}

func (r *inMemoryWalletRepo) GetByVendorIDTx(ctx context.Context, tx pgx.Tx, vendorID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByVendorID(ctx, vendorID)
}

func (r *inMemoryWalletRepo) UpdateSnapshot(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) error {
	if mtx, ok := tx.(*inMemoryTx); ok {
		// The version check moves to Commit, where it is atomic with the
		// staged entry appends.
		mtx.stageSnapshot(w, expectedVersion)
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.wallets[w.VendorID]
	if !ok || stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	next := copyWallet(w)
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now().UTC()
	r.wallets[w.VendorID] = next
	return nil
}

func (r *inMemoryWalletRepo) SetFlagged(ctx context.Context, vendorID uuid.UUID, flagged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[vendorID]; ok {
		w.Flagged = flagged
	}
	return nil
}

// --- In-Memory Ledger Entry Repo ---

type inMemoryLedgerEntryRepo struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry // append order == chronological order
}

func newInMemoryLedgerEntryRepo() *inMemoryLedgerEntryRepo {
	return &inMemoryLedgerEntryRepo{}
}

func (r *inMemoryLedgerEntryRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	if mtx, ok := tx.(*inMemoryTx); ok {
		mtx.stageAppend(e)
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *inMemoryLedgerEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			e := r.entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (r *inMemoryLedgerEntryRepo) GetSaleCredit(ctx context.Context, vendorID uuid.UUID, reference string) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		e := r.entries[i]
		if e.VendorID == vendorID && e.Type == domain.EntryTypeCredit && e.Category == domain.CategorySale && e.Reference == reference {
			return &e, nil
		}
	}
	return nil, nil
}

func (r *inMemoryLedgerEntryRepo) ExistsByReference(ctx context.Context, vendorID uuid.UUID, entryType domain.EntryType, category domain.EntryCategory, reference string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		e := r.entries[i]
		if e.VendorID == vendorID && e.Type == entryType && e.Category == category && e.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryLedgerEntryRepo) ReleaseExists(ctx context.Context, originalEntryID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.entries {
		e := r.entries[i]
		if e.Type == domain.EntryTypeRelease && e.OriginalEntryID != nil && *e.OriginalEntryID == originalEntryID {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryLedgerEntryRepo) RefundedFromPending(ctx context.Context, originalEntryID uuid.UUID) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refundedFromPendingLocked(originalEntryID), nil
}

func (r *inMemoryLedgerEntryRepo) refundedFromPendingLocked(originalEntryID uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for i := range r.entries {
		e := r.entries[i]
		if e.Type == domain.EntryTypeDebit && e.Category == domain.CategoryRefund &&
			e.Bucket == domain.BucketPending &&
			e.OriginalEntryID != nil && *e.OriginalEntryID == originalEntryID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

func (r *inMemoryLedgerEntryRepo) List(ctx context.Context, params ports.EntryListParams) ([]domain.LedgerEntry, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	// Newest first, like the postgres repo.
	var result []domain.LedgerEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.VendorID != params.VendorID {
			continue
		}
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		if params.Category != nil && e.Category != *params.Category {
			continue
		}
		if params.From != nil && e.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && e.CreatedAt.Unix() > *params.To {
			continue
		}
		result = append(result, e)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryLedgerEntryRepo) ListMaturable(ctx context.Context, asOf time.Time, limit int) ([]domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LedgerEntry
	for i := range r.entries {
		e := r.entries[i]
		if e.Type != domain.EntryTypeCredit || e.Category != domain.CategorySale {
			continue
		}
		if !e.Matured(asOf) {
			continue
		}
		if r.releaseExistsLocked(e.ID) {
			continue
		}
		// Fully refunded credits have no pending money left to release.
		if !e.Amount.GreaterThan(r.refundedFromPendingLocked(e.ID)) {
			continue
		}
		result = append(result, e)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *inMemoryLedgerEntryRepo) releaseExistsLocked(originalEntryID uuid.UUID) bool {
	for i := range r.entries {
		e := r.entries[i]
		if e.Type == domain.EntryTypeRelease && e.OriginalEntryID != nil && *e.OriginalEntryID == originalEntryID {
			return true
		}
	}
	return false
}

// --- In-Memory Payout Repo ---

type inMemoryPayoutRepo struct {
	mu       sync.RWMutex
	requests map[uuid.UUID]*domain.PayoutRequest
}

func newInMemoryPayoutRepo() *inMemoryPayoutRepo {
	return &inMemoryPayoutRepo{requests: make(map[uuid.UUID]*domain.PayoutRequest)}
}

func (r *inMemoryPayoutRepo) Create(ctx context.Context, p *domain.PayoutRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// One open request per vendor, like the partial unique index.
	for _, existing := range r.requests {
		if existing.VendorID == p.VendorID && existing.IsOpen() {
			return domain.ErrOpenPayoutExists
		}
	}
	cp := *p
	r.requests[p.ID] = &cp
	return nil
}

func (r *inMemoryPayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPayoutRepo) GetOpenByVendor(ctx context.Context, vendorID uuid.UUID) (*domain.PayoutRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.requests {
		if p.VendorID == vendorID && p.IsOpen() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPayoutRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PayoutStatus, decidedBy *uuid.UUID, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.requests[id]
	if !ok {
		return nil
	}
	p.Status = status
	if decidedBy != nil {
		p.DecidedBy = decidedBy
		now := time.Now().UTC()
		p.DecidedAt = &now
	}
	if reason != nil {
		p.Reason = reason
	}
	return nil
}

func (r *inMemoryPayoutRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, page, pageSize int) ([]domain.PayoutRequest, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PayoutRequest
	for _, p := range r.requests {
		if p.VendorID == vendorID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.After(result[j].RequestedAt) })
	return paginatePayouts(result, page, pageSize)
}

func (r *inMemoryPayoutRepo) ListByStatus(ctx context.Context, status domain.PayoutStatus, page, pageSize int) ([]domain.PayoutRequest, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PayoutRequest
	for _, p := range r.requests {
		if p.Status == status {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.Before(result[j].RequestedAt) })
	return paginatePayouts(result, page, pageSize)
}

func paginatePayouts(result []domain.PayoutRequest, page, pageSize int) ([]domain.PayoutRequest, int64, error) {
	total := int64(len(result))
	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.PayoutRequest{}, total, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Parked Event Repo ---

type inMemoryParkedEventRepo struct {
	mu     sync.RWMutex
	events []domain.ParkedEvent
}

func newInMemoryParkedEventRepo() *inMemoryParkedEventRepo {
	return &inMemoryParkedEventRepo{}
}

func (r *inMemoryParkedEventRepo) Create(ctx context.Context, e *domain.ParkedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *inMemoryParkedEventRepo) List(ctx context.Context, page, pageSize int) ([]domain.ParkedEvent, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := int64(len(r.events))
	start := (page - 1) * pageSize
	if start >= len(r.events) {
		return []domain.ParkedEvent{}, total, nil
	}
	end := start + pageSize
	if end > len(r.events) {
		end = len(r.events)
	}
	out := make([]domain.ParkedEvent, end-start)
	copy(out, r.events[start:end])
	return out, total, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor hands out staged transactions: entry appends and wallet
// writes buffer in the tx and land atomically on Commit, so a failed version
// check cannot leave orphan entries behind the way a bare fake would.
type inMemoryTransactor struct {
	wallets *inMemoryWalletRepo
	entries *inMemoryLedgerEntryRepo
}

func newInMemoryTransactor(wallets *inMemoryWalletRepo, entries *inMemoryLedgerEntryRepo) *inMemoryTransactor {
	return &inMemoryTransactor{wallets: wallets, entries: entries}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &inMemoryTx{wallets: t.wallets, entries: t.entries}, nil
}

// inMemoryTx buffers repo writes until Commit. Commit re-runs the wallet
// version check under the repo locks, mirroring how the real transaction
// makes the snapshot UPDATE and the entry INSERTs atomic.
type inMemoryTx struct {
	noopTx

	wallets *inMemoryWalletRepo
	entries *inMemoryLedgerEntryRepo

	mu              sync.Mutex
	done            bool
	creates         []*domain.Wallet
	snapshot        *domain.Wallet
	snapshotVersion int64
	appends         []*domain.LedgerEntry
}

func (t *inMemoryTx) stageCreate(w *domain.Wallet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.creates = append(t.creates, copyWallet(w))
}

func (t *inMemoryTx) stageSnapshot(w *domain.Wallet, expectedVersion int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot = copyWallet(w)
	t.snapshotVersion = expectedVersion
}

func (t *inMemoryTx) stageAppend(e *domain.LedgerEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := *e
	t.appends = append(t.appends, &cp)
}

func (t *inMemoryTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	t.wallets.mu.Lock()
	defer t.wallets.mu.Unlock()
	t.entries.mu.Lock()
	defer t.entries.mu.Unlock()

	// Verify before applying anything: a conflict discards the whole tx.
	for _, w := range t.creates {
		if _, ok := t.wallets.wallets[w.VendorID]; ok {
			return domain.ErrVersionConflict
		}
	}
	if t.snapshot != nil {
		stored, ok := t.wallets.wallets[t.snapshot.VendorID]
		switch {
		case ok:
			if stored.Version != t.snapshotVersion {
				return domain.ErrVersionConflict
			}
		default:
			// The wallet may have been created earlier in this same tx.
			if !t.createsVendor(t.snapshot.VendorID) {
				return domain.ErrVersionConflict
			}
		}
	}

	for _, w := range t.creates {
		t.wallets.wallets[w.VendorID] = copyWallet(w)
	}
	if t.snapshot != nil {
		next := copyWallet(t.snapshot)
		next.Version = t.snapshotVersion + 1
		next.UpdatedAt = time.Now().UTC()
		t.wallets.wallets[next.VendorID] = next
	}
	for _, e := range t.appends {
		t.entries.entries = append(t.entries.entries, *e)
	}
	return nil
}

func (t *inMemoryTx) createsVendor(vendorID uuid.UUID) bool {
	for _, w := range t.creates {
		if w.VendorID == vendorID {
			return true
		}
	}
	return false
}

func (t *inMemoryTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		// Deferred rollback after a commit, same as pgx.
		return pgx.ErrTxClosed
	}
	t.done = true
	t.creates = nil
	t.snapshot = nil
	t.appends = nil
	return nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
