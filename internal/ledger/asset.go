package ledger

import "encoding/hex"

// Kind distinguishes the two custodied asset classes.
type Kind uint8

const (
	// KindUnique is a singleton item: exactly one exists per (collection, item).
	KindUnique Kind = 1

	// KindFungible is a counted item: a quantity of interchangeable units.
	KindFungible Kind = 2
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnique:
		return "unique"
	case KindFungible:
		return "fungible"
	default:
		return "unknown"
	}
}

// CollectionRef is the opaque identity of the external contract that
// issued an asset. The zero value is reserved as the withdrawn sentinel.
type CollectionRef [32]byte

// IsZero reports whether the reference is the sentinel value.
func (c CollectionRef) IsZero() bool {
	return c == CollectionRef{}
}

// Short returns the first 8 bytes hex-encoded, for logging.
func (c CollectionRef) Short() string {
	return hex.EncodeToString(c[:8])
}

// AssetReference identifies exactly one custodied asset unit.
// Immutable once created.
type AssetReference struct {
	Collection CollectionRef // Collection is the issuing contract identity
	ItemID     uint64        // ItemID is the item number within the collection
	Kind       Kind          // Kind is the asset class
	Quantity   uint64        // Quantity is the unit count (always 1 for unique)
}

// UniqueAsset builds a reference to a singleton item.
func UniqueAsset(collection CollectionRef, itemID uint64) AssetReference {
	return AssetReference{
		Collection: collection,
		ItemID:     itemID,
		Kind:       KindUnique,
		Quantity:   1,
	}
}

// FungibleAsset builds a reference to a counted item quantity.
func FungibleAsset(collection CollectionRef, itemID, quantity uint64) AssetReference {
	return AssetReference{
		Collection: collection,
		ItemID:     itemID,
		Kind:       KindFungible,
		Quantity:   quantity,
	}
}

// DepositEntry is one row of the deposit table.
// A zero Collection marks the entry as withdrawn (the sentinel state).
type DepositEntry struct {
	ID        uint64         // ID is the monotonic deposit identifier
	Asset     AssetReference // Asset is the custodied asset unit
	Depositor Identity       // Depositor is the identity that created the entry
}

// Live reports whether the entry currently holds an asset.
func (e DepositEntry) Live() bool {
	return !e.Asset.Collection.IsZero()
}
