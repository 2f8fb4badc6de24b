package types

import (
	"github.com/ipfs/go-cid"

	"github.com/blockmarket/blockmarket/lib/chash"
)

// Status is the lifecycle of a listing load or a submitted action.
// The zero value doubles as the error/reset state so a failed attempt can be
// re-triggered.
type Status string

const (
	StatusIdle    Status = ""
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	// StatusPartial marks a listing where some entities failed to expand but
	// the rest loaded; distinct from total failure.
	StatusPartial Status = "partial"
)

// Role of the current account, derived from the access registry. Never cached
// across account changes.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
	RoleShopper Role = "shopper"
)

// Store is a fully expanded store: the registry record joined with its
// blob-store descriptor and the item count derived from the product registry.
type Store struct {
	ID        uint64
	Owner     Address
	Content   chash.ContentHash
	CreatedAt int64
	UpdatedAt int64

	ProductCount uint64

	Name        string
	Description string
	ImageRef    cid.Cid
	Image       []byte
}

// Product is a fully expanded product, including fields joined in from its
// parent store.
type Product struct {
	ID        uint64
	StoreID   uint64
	Content   chash.ContentHash
	Price     Amount
	Quantity  uint64
	CreatedAt int64
	UpdatedAt int64

	StoreName  string
	StoreOwner Address

	Name        string
	Description string
	ImageRef    cid.Cid
	Image       []byte
}

// PriceUnits is the price in display units.
func (p Product) PriceUnits() string {
	return FormatUnits(p.Price)
}

// OwnerProfile is a derived aggregate over the store and product registries.
// It is never stored on chain; it is recomputed by traversal on every load.
type OwnerProfile struct {
	Address      Address
	StoreCount   uint64
	ProductCount uint64
}
