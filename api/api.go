// Package api declares the boundary contracts the sync core consumes: the
// four on-chain registries, the wallet provider, and the typed events they
// emit. All durable state lives behind these interfaces; the rest of the
// system only mirrors it.
package api

import (
	"context"

	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/lib/chash"
)

// Wallet is the provider capability. It may become unreachable or change its
// account set at any time; callers must treat every call as fallible.
type Wallet interface {
	// Version doubles as the presence probe.
	Version(ctx context.Context) (Version, error)

	// Accounts lists the currently authorized accounts, possibly empty.
	// The first entry is the active account.
	Accounts(ctx context.Context) ([]types.Address, error)
}

type Version struct {
	Version    string
	APIVersion uint64
}

// StoreInfo is the raw store record as the registry returns it. Exists is
// false for ids that were assigned and later removed; such records are
// logically deleted, not errors.
type StoreInfo struct {
	ID        uint64
	Owner     types.Address
	Content   chash.ContentHash
	CreatedAt int64
	UpdatedAt int64
	Exists    bool
}

// ProductInfo is the raw product record.
type ProductInfo struct {
	ID        uint64
	StoreID   uint64
	Content   chash.ContentHash
	Price     types.Amount
	Quantity  uint64
	CreatedAt int64
	UpdatedAt int64
	Exists    bool
}

// StoreRegistry is the authoritative collection of stores.
//
// StoreCounter is monotonic: it starts at zero and only increases; the id of
// the newest store equals the counter, and ids walk down to 1.
type StoreRegistry interface {
	StoreCounter(ctx context.Context) (uint64, error)
	GetStore(ctx context.Context, id uint64) (StoreInfo, error)
	StoreExists(ctx context.Context, id uint64) (bool, error)

	OwnerStoreCount(ctx context.Context, owner types.Address) (uint64, error)
	OwnerStoreAt(ctx context.Context, owner types.Address, idx uint64) (uint64, error)

	AddStore(ctx context.Context, content chash.ContentHash, from types.Address) error
	UpdateStore(ctx context.Context, id uint64, content chash.ContentHash, from types.Address) error
	RemoveStore(ctx context.Context, id uint64, from types.Address) error

	SubscribeStoreAdded(ctx context.Context) (<-chan StoreAdded, error)
}

// ProductRegistry is the authoritative collection of products.
type ProductRegistry interface {
	ProductCounter(ctx context.Context) (uint64, error)
	GetProduct(ctx context.Context, id uint64) (ProductInfo, error)
	ProductExists(ctx context.Context, id uint64) (bool, error)

	StoreProductCount(ctx context.Context, storeID uint64) (uint64, error)
	StoreProductAt(ctx context.Context, storeID uint64, idx uint64) (uint64, error)

	AddProduct(ctx context.Context, storeID uint64, content chash.ContentHash, price types.Amount, quantity uint64, from types.Address) error
	UpdatePrice(ctx context.Context, id uint64, price types.Amount, from types.Address) error
	UpdateQuantity(ctx context.Context, id uint64, quantity uint64, from types.Address) error
	UpdatePriceAndQuantity(ctx context.Context, id uint64, price types.Amount, quantity uint64, from types.Address) error
	RemoveProduct(ctx context.Context, id uint64, from types.Address) error

	// PurchaseProduct escrows payment with the funds registry. Stock and
	// payment sufficiency are the registry's authority, not the caller's.
	PurchaseProduct(ctx context.Context, id uint64, quantity uint64, payment types.Amount, from types.Address) error

	// SubscribeProductAdded delivers creations; storeID zero means all stores.
	SubscribeProductAdded(ctx context.Context, storeID uint64) (<-chan ProductAdded, error)

	// SubscribeProductPurchased delivers quantity changes; productID zero
	// means all products.
	SubscribeProductPurchased(ctx context.Context, productID uint64) (<-chan ProductPurchased, error)
}

// AccessRegistry tracks roles. An account is an admin, a storeowner, or
// (implicitly) a shopper.
type AccessRegistry interface {
	IsAdmin(ctx context.Context, addr types.Address) (bool, error)
	IsStoreowner(ctx context.Context, addr types.Address) (bool, error)

	StoreownerCount(ctx context.Context) (uint64, error)
	StoreownerAt(ctx context.Context, idx uint64) (types.Address, error)

	AddStoreowner(ctx context.Context, addr types.Address, from types.Address) error
	RemoveStoreowner(ctx context.Context, addr types.Address, from types.Address) error

	SubscribeStoreownerAdded(ctx context.Context) (<-chan StoreownerAdded, error)
}

// FundsRegistry escrows sale proceeds until the storeowner withdraws them.
type FundsRegistry interface {
	Balance(ctx context.Context, addr types.Address) (types.Amount, error)
	Withdraw(ctx context.Context, from types.Address) error
}
