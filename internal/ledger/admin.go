package ledger

import (
	"fmt"

	"StrongRoom/internal/logger"
)

// AuthorizeDepositor grants deposit rights. Administrator-only; idempotent.
func (l *Ledger) AuthorizeDepositor(caller, depositor Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	return l.access.allow(depositor)
}

// RevokeDepositor removes deposit rights. Administrator-only; idempotent.
func (l *Ledger) RevokeDepositor(caller, depositor Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	return l.access.revoke(depositor)
}

// SetAuthorizedSigner replaces the single signer whose signatures
// authorize withdrawals. Administrator-only. Rotating the signer does not
// resurrect fingerprints already consumed.
func (l *Ledger) SetAuthorizedSigner(caller, signer Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	if signer.IsZero() {
		return fmt.Errorf("%w: zero identity", ErrInvalidSigner)
	}

	logger.Info("authorized signer set", "signer", signer.Short())

	return l.access.setSigner(signer)
}

// EmergencyBatchWithdrawal moves every live entry in [startID, endID] to
// the recipient, bypassing the normal withdrawal checks. Entries already
// at the sentinel are skipped silently; a mover failure aborts the
// remaining batch. Each moved entry is erased as soon as its asset moves,
// so the table never references an asset the vault no longer holds.
func (l *Ledger) EmergencyBatchWithdrawal(caller Identity, startID, endID uint64, recipient Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	if recipient.IsZero() {
		return fmt.Errorf("%w: zero identity", ErrInvalidRecipient)
	}

	highest, err := l.deposits.highest()
	if err != nil {
		return err
	}

	if startID == 0 || startID > endID || endID > highest {
		return fmt.Errorf("%w: [%d, %d] with highest id %d", ErrInvalidRange, startID, endID, highest)
	}

	moved := 0

	for id := startID; id <= endID; id++ {
		entry, live, err := l.deposits.get(id)
		if err != nil {
			return err
		}
		if !live {
			continue
		}

		if err := l.assets.Push(entry.Asset, recipient); err != nil {
			return fmt.Errorf("%w: push deposit %d (batch aborted, %d moved):\n%w", ErrMoverFailure, id, moved, err)
		}

		if err := l.deposits.erase(id); err != nil {
			return err
		}

		moved++
	}

	logger.Info("emergency batch withdrawal",
		"start", startID,
		"end", endID,
		"moved", moved,
		"recipient", recipient.Short(),
	)

	return nil
}

// EmergencyWithdrawUnique pushes a singleton item to the recipient,
// whether or not the item ever received a deposit entry. Any live entry
// matching the collection+item is erased.
func (l *Ledger) EmergencyWithdrawUnique(caller Identity, collection CollectionRef, itemID uint64, recipient Identity) error {
	return l.emergencyWithdraw(caller, UniqueAsset(collection, itemID), recipient)
}

// EmergencyWithdrawFungible pushes a counted-item quantity to the
// recipient. Any live entry matching the collection+item is erased.
func (l *Ledger) EmergencyWithdrawFungible(caller Identity, collection CollectionRef, itemID, quantity uint64, recipient Identity) error {
	return l.emergencyWithdraw(caller, FungibleAsset(collection, itemID, quantity), recipient)
}

// emergencyWithdraw is the direct recovery path for tracked and untracked
// custody alike.
func (l *Ledger) emergencyWithdraw(caller Identity, asset AssetReference, recipient Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	if recipient.IsZero() {
		return fmt.Errorf("%w: zero identity", ErrInvalidRecipient)
	}

	if err := l.assets.Push(asset, recipient); err != nil {
		return fmt.Errorf("%w: push %s item %d:\n%w", ErrMoverFailure, asset.Collection.Short(), asset.ItemID, err)
	}

	erased, err := l.deposits.eraseMatching(asset.Collection, asset.ItemID)
	if err != nil {
		return err
	}

	logger.Info("emergency withdrawal",
		"collection", asset.Collection.Short(),
		"item", asset.ItemID,
		"kind", asset.Kind,
		"recipient", recipient.Short(),
		"erased", len(erased),
	)

	return nil
}

// WithdrawAllFunds sweeps the entire accumulated fee-currency balance to
// the recipient. Administrator-only; all-or-nothing.
func (l *Ledger) WithdrawAllFunds(caller, recipient Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(caller); err != nil {
		return err
	}

	if recipient.IsZero() {
		return fmt.Errorf("%w: zero identity", ErrInvalidRecipient)
	}

	balance, err := l.fees.balance()
	if err != nil {
		return err
	}

	if balance.IsZero() {
		return nil
	}

	if err := l.funds.Payout(recipient, balance); err != nil {
		return fmt.Errorf("%w: payout %s:\n%w", ErrMoverFailure, balance.Dec(), err)
	}

	if err := l.fees.clear(); err != nil {
		return err
	}

	logger.Info("fee balance swept", "amount", balance.Dec(), "recipient", recipient.Short())

	return nil
}
