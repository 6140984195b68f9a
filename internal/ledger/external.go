package ledger

import "github.com/holiman/uint256"

// AssetMover is the external asset-transfer capability.
// Both calls are atomic from the ledger's perspective: a nil return means
// the asset moved, any error means nothing moved.
type AssetMover interface {
	// Pull transfers the asset from the owner into vault custody.
	Pull(asset AssetReference, from Identity) error

	// Push transfers the asset out of vault custody to the recipient.
	Push(asset AssetReference, to Identity) error
}

// FundsMover is the external fee-currency capability.
type FundsMover interface {
	// Collect pulls a payment from the payer into the vault's balance.
	Collect(from Identity, amount *uint256.Int) error

	// Payout pays out from the vault's balance to the recipient.
	Payout(to Identity, amount *uint256.Int) error
}

// SignerRecovery recovers a signer identity from a digest and signature.
// Implementations fail distinctly for malformed-length input versus
// cryptographically invalid input.
type SignerRecovery interface {
	RecoverSigner(digest [32]byte, sig []byte) (Identity, error)
}

// HeightSource provides the monotonic height used for expiry comparison.
type HeightSource interface {
	Height() uint64
}

// External bundles the collaborator capabilities a ledger needs.
type External struct {
	Assets   AssetMover
	Funds    FundsMover
	Recovery SignerRecovery
	Heights  HeightSource
	Events   EventSink
}
