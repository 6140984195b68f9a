package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"StrongRoom/internal/logger"
	"StrongRoom/internal/storage"
)

// keyVaultID persists the vault instance identity.
var keyVaultID = []byte("m:vault-id")

// Ledger is the token-custody vault ledger. It owns the deposit table, the
// access registry, the fee schedule, and the used-authorization set; no
// other component writes them. A single mutex serializes every operation,
// so each exposed call is one transaction boundary: it completes fully or
// fails fully.
type Ledger struct {
	mu sync.Mutex

	db       *storage.Store
	deposits *depositStore
	access   *accessStore
	fees     *feeStore
	used     *authStore

	admin   Identity
	vaultID [16]byte

	assets   AssetMover
	funds    FundsMover
	recovery SignerRecovery
	heights  HeightSource
	events   EventSink
}

// New opens a ledger over the given storage. The vault instance id is
// generated on first open and persisted; it is bound into every
// authorization fingerprint.
func New(db *storage.Store, admin Identity, ext External) (*Ledger, error) {
	if admin.IsZero() {
		return nil, fmt.Errorf("admin identity must not be zero")
	}

	vaultID, err := loadOrCreateVaultID(db)
	if err != nil {
		return nil, fmt.Errorf("vault id:\n%w", err)
	}

	l := &Ledger{
		db:       db,
		deposits: newDepositStore(db),
		access:   newAccessStore(db),
		fees:     newFeeStore(db),
		used:     newAuthStore(db),
		admin:    admin,
		vaultID:  vaultID,
		assets:   ext.Assets,
		funds:    ext.Funds,
		recovery: ext.Recovery,
		heights:  ext.Heights,
		events:   ext.Events,
	}

	if l.events == nil {
		l.events = discardSink{}
	}

	return l, nil
}

// loadOrCreateVaultID reads the persistent vault uuid, generating one on
// first open.
func loadOrCreateVaultID(db *storage.Store) ([16]byte, error) {
	var id [16]byte

	data, err := db.Get(keyVaultID)
	if err != nil {
		return id, err
	}

	if len(data) == 16 {
		copy(id[:], data)
		return id, nil
	}

	id = uuid.New()

	if err := db.SetSync(keyVaultID, id[:]); err != nil {
		return id, err
	}

	return id, nil
}

// VaultID returns the vault instance identity bound into fingerprints.
func (l *Ledger) VaultID() [16]byte {
	return l.vaultID
}

// Admin returns the administrator identity.
func (l *Ledger) Admin() Identity {
	return l.admin
}

// requireAdmin rejects callers other than the administrator.
func (l *Ledger) requireAdmin(caller Identity) error {
	if caller != l.admin {
		return fmt.Errorf("%w: caller %s is not the administrator", ErrUnauthorized, caller.Short())
	}
	return nil
}

// DepositUnique custodies a singleton item for the caller.
func (l *Ledger) DepositUnique(caller Identity, collection CollectionRef, itemID uint64) (uint64, error) {
	return l.deposit(caller, UniqueAsset(collection, itemID))
}

// DepositFungible custodies one unit of a counted item for the caller.
// Quantity is fixed at 1 per call; batch quantities are not supported.
func (l *Ledger) DepositFungible(caller Identity, collection CollectionRef, itemID uint64) (uint64, error) {
	return l.deposit(caller, FungibleAsset(collection, itemID, 1))
}

// deposit allocates the next id, records the entry, then pulls the asset.
// Bookkeeping is durable before the mover call; on mover failure the entry
// is reset to the sentinel and the id stays burned, never reused.
func (l *Ledger) deposit(caller Identity, asset AssetReference) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if asset.Collection.IsZero() {
		return 0, fmt.Errorf("%w: zero collection", ErrInvalidAsset)
	}

	allowed, err := l.access.isAllowed(caller)
	if err != nil {
		return 0, err
	}
	if !allowed {
		return 0, fmt.Errorf("%w: depositor %s not allowed", ErrUnauthorized, caller.Short())
	}

	id, err := l.deposits.allocate()
	if err != nil {
		return 0, err
	}

	entry := DepositEntry{ID: id, Asset: asset, Depositor: caller}
	if err := l.deposits.put(entry); err != nil {
		return 0, err
	}

	if err := l.assets.Pull(asset, caller); err != nil {
		if eraseErr := l.deposits.erase(id); eraseErr != nil {
			logger.Error("unwind deposit entry failed", "id", id, "error", eraseErr)
		}
		return 0, fmt.Errorf("%w: pull %s item %d:\n%w", ErrMoverFailure, asset.Collection.Short(), asset.ItemID, err)
	}

	logger.Debug("deposit recorded",
		"id", id,
		"depositor", caller.Short(),
		"collection", asset.Collection.Short(),
		"item", asset.ItemID,
		"kind", asset.Kind,
	)

	l.events.Emit(Event{
		Type:       EventDeposit,
		Actor:      caller,
		DepositID:  id,
		Collection: asset.Collection,
		ItemID:     asset.ItemID,
	})

	return id, nil
}

// WithdrawWithSignature releases a deposit against a time-bounded,
// single-use authorization issued by the registered signer.
//
// The fingerprint is marked used before the signature is verified
// (insert-then-verify) and the mark is never rolled back: the used set
// only grows. A second presentation of the same authorization fails with
// ErrSignatureUsed regardless of how the first attempt ended.
func (l *Ledger) WithdrawWithSignature(caller Identity, depositID uint64, sig []byte, expiryHeight uint64, payment *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h := l.heights.Height(); h > expiryHeight {
		return fmt.Errorf("%w: height %d past expiry %d", ErrExpired, h, expiryHeight)
	}

	entry, live, err := l.deposits.get(depositID)
	if err != nil {
		return err
	}
	if !live {
		return fmt.Errorf("%w: id %d", ErrNoSuchDeposit, depositID)
	}

	required, err := l.fees.get(depositID)
	if err != nil {
		return err
	}

	if payment == nil {
		payment = new(uint256.Int)
	}
	if payment.Lt(required) {
		return fmt.Errorf("%w: paid %s, owed %s", ErrInsufficientFee, payment.Dec(), required.Dec())
	}

	fp := Fingerprint(caller, depositID, expiryHeight, l.vaultID)

	used, err := l.used.contains(fp)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("%w: fingerprint %x", ErrSignatureUsed, fp[:8])
	}

	if err := l.used.mark(fp); err != nil {
		return err
	}

	signer, err := l.recovery.RecoverSigner(fp, sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	authorized, err := l.access.signer()
	if err != nil {
		return err
	}
	if authorized.IsZero() || signer != authorized {
		return fmt.Errorf("%w: recovered %s is not the authorized signer", ErrInvalidSignature, signer.Short())
	}

	if !payment.IsZero() {
		if err := l.funds.Collect(caller, payment); err != nil {
			return fmt.Errorf("%w: collect payment:\n%w", ErrMoverFailure, err)
		}
	}

	if err := l.assets.Push(entry.Asset, caller); err != nil {
		l.refund(caller, payment)
		return fmt.Errorf("%w: push %s item %d:\n%w", ErrMoverFailure, entry.Asset.Collection.Short(), entry.Asset.ItemID, err)
	}

	if err := l.deposits.erase(depositID); err != nil {
		return err
	}

	if err := l.fees.credit(payment); err != nil {
		return err
	}

	logger.Debug("withdrawal completed",
		"id", depositID,
		"withdrawer", caller.Short(),
		"payment", payment.Dec(),
	)

	l.events.Emit(Event{
		Type:      EventWithdrawal,
		Actor:     caller,
		DepositID: depositID,
	})

	return nil
}

// refund returns a collected payment after a failed asset push.
func (l *Ledger) refund(to Identity, payment *uint256.Int) {
	if payment.IsZero() {
		return
	}

	if err := l.funds.Payout(to, payment); err != nil {
		logger.Error("refund payment failed", "to", to.Short(), "amount", payment.Dec(), "error", err)
	}
}

// SetWithdrawalFee sets the price of a signature-authorized withdrawal.
// Administrator-only; the id must have a live entry.
func (l *Ledger) SetWithdrawalFee(caller Identity, depositID uint64, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	_, live, err := l.deposits.get(depositID)
	if err != nil {
		return err
	}
	if !live {
		return fmt.Errorf("%w: id %d", ErrNoSuchDeposit, depositID)
	}

	return l.fees.set(depositID, amount)
}

// OnAssetReceived acknowledges an inbound transfer notification.
// It is deliberately a pure no-op: bookkeeping happens synchronously in
// the deposit operations, never in a transfer callback. An asset that
// arrives without a deposit call is custodied but untracked; the
// emergency paths recover it by collection+item.
func (l *Ledger) OnAssetReceived(CollectionRef, uint64, Identity) error {
	return nil
}

// IsDepositorAllowed reports whether an identity may create deposits.
func (l *Ledger) IsDepositorAllowed(id Identity) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.access.isAllowed(id)
}

// AuthorizedSigner returns the current signer identity, or zero if unset.
func (l *Ledger) AuthorizedSigner() (Identity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.access.signer()
}

// Deposit returns the entry for an id. live is false for withdrawn
// entries and for ids never allocated.
func (l *Ledger) Deposit(id uint64) (DepositEntry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.deposits.get(id)
}

// HighestDepositID returns the highest id ever allocated.
func (l *Ledger) HighestDepositID() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.deposits.highest()
}

// WithdrawalFee returns the fee owed for a deposit id.
func (l *Ledger) WithdrawalFee(id uint64) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fees.get(id)
}

// FeeBalance returns the accumulated fee-currency balance.
func (l *Ledger) FeeBalance() (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.fees.balance()
}
