package apistruct

import (
	"context"

	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/lib/chash"
)

// WalletStruct implements api.Wallet passing calls to user-provided function
// values. The RPC client fills Internal from the wire protocol.
type WalletStruct struct {
	Internal struct {
		Version  func(ctx context.Context) (api.Version, error)     `perm:"read"`
		Accounts func(ctx context.Context) ([]types.Address, error) `perm:"read"`
	}
}

func (w *WalletStruct) Version(ctx context.Context) (api.Version, error) {
	return w.Internal.Version(ctx)
}

func (w *WalletStruct) Accounts(ctx context.Context) ([]types.Address, error) {
	return w.Internal.Accounts(ctx)
}

// StoreRegistryStruct implements api.StoreRegistry.
type StoreRegistryStruct struct {
	Internal struct {
		StoreCounter func(ctx context.Context) (uint64, error)                   `perm:"read"`
		GetStore     func(ctx context.Context, id uint64) (api.StoreInfo, error) `perm:"read"`
		StoreExists  func(ctx context.Context, id uint64) (bool, error)          `perm:"read"`

		OwnerStoreCount func(ctx context.Context, owner types.Address) (uint64, error)             `perm:"read"`
		OwnerStoreAt    func(ctx context.Context, owner types.Address, idx uint64) (uint64, error) `perm:"read"`

		AddStore    func(ctx context.Context, content chash.ContentHash, from types.Address) error            `perm:"write"`
		UpdateStore func(ctx context.Context, id uint64, content chash.ContentHash, from types.Address) error `perm:"write"`
		RemoveStore func(ctx context.Context, id uint64, from types.Address) error                            `perm:"write"`

		SubscribeStoreAdded func(ctx context.Context) (<-chan api.StoreAdded, error) `perm:"read"`
	}
}

func (s *StoreRegistryStruct) StoreCounter(ctx context.Context) (uint64, error) {
	return s.Internal.StoreCounter(ctx)
}

func (s *StoreRegistryStruct) GetStore(ctx context.Context, id uint64) (api.StoreInfo, error) {
	return s.Internal.GetStore(ctx, id)
}

func (s *StoreRegistryStruct) StoreExists(ctx context.Context, id uint64) (bool, error) {
	return s.Internal.StoreExists(ctx, id)
}

func (s *StoreRegistryStruct) OwnerStoreCount(ctx context.Context, owner types.Address) (uint64, error) {
	return s.Internal.OwnerStoreCount(ctx, owner)
}

func (s *StoreRegistryStruct) OwnerStoreAt(ctx context.Context, owner types.Address, idx uint64) (uint64, error) {
	return s.Internal.OwnerStoreAt(ctx, owner, idx)
}

func (s *StoreRegistryStruct) AddStore(ctx context.Context, content chash.ContentHash, from types.Address) error {
	return s.Internal.AddStore(ctx, content, from)
}

func (s *StoreRegistryStruct) UpdateStore(ctx context.Context, id uint64, content chash.ContentHash, from types.Address) error {
	return s.Internal.UpdateStore(ctx, id, content, from)
}

func (s *StoreRegistryStruct) RemoveStore(ctx context.Context, id uint64, from types.Address) error {
	return s.Internal.RemoveStore(ctx, id, from)
}

func (s *StoreRegistryStruct) SubscribeStoreAdded(ctx context.Context) (<-chan api.StoreAdded, error) {
	return s.Internal.SubscribeStoreAdded(ctx)
}

// ProductRegistryStruct implements api.ProductRegistry.
type ProductRegistryStruct struct {
	Internal struct {
		ProductCounter func(ctx context.Context) (uint64, error)                     `perm:"read"`
		GetProduct     func(ctx context.Context, id uint64) (api.ProductInfo, error) `perm:"read"`
		ProductExists  func(ctx context.Context, id uint64) (bool, error)            `perm:"read"`

		StoreProductCount func(ctx context.Context, storeID uint64) (uint64, error)             `perm:"read"`
		StoreProductAt    func(ctx context.Context, storeID uint64, idx uint64) (uint64, error) `perm:"read"`

		AddProduct             func(ctx context.Context, storeID uint64, content chash.ContentHash, price types.Amount, quantity uint64, from types.Address) error `perm:"write"`
		UpdatePrice            func(ctx context.Context, id uint64, price types.Amount, from types.Address) error                                                  `perm:"write"`
		UpdateQuantity         func(ctx context.Context, id uint64, quantity uint64, from types.Address) error                                                     `perm:"write"`
		UpdatePriceAndQuantity func(ctx context.Context, id uint64, price types.Amount, quantity uint64, from types.Address) error                                 `perm:"write"`
		RemoveProduct          func(ctx context.Context, id uint64, from types.Address) error                                                                      `perm:"write"`
		PurchaseProduct        func(ctx context.Context, id uint64, quantity uint64, payment types.Amount, from types.Address) error                               `perm:"write"`

		SubscribeProductAdded     func(ctx context.Context, storeID uint64) (<-chan api.ProductAdded, error)       `perm:"read"`
		SubscribeProductPurchased func(ctx context.Context, productID uint64) (<-chan api.ProductPurchased, error) `perm:"read"`
	}
}

func (p *ProductRegistryStruct) ProductCounter(ctx context.Context) (uint64, error) {
	return p.Internal.ProductCounter(ctx)
}

func (p *ProductRegistryStruct) GetProduct(ctx context.Context, id uint64) (api.ProductInfo, error) {
	return p.Internal.GetProduct(ctx, id)
}

func (p *ProductRegistryStruct) ProductExists(ctx context.Context, id uint64) (bool, error) {
	return p.Internal.ProductExists(ctx, id)
}

func (p *ProductRegistryStruct) StoreProductCount(ctx context.Context, storeID uint64) (uint64, error) {
	return p.Internal.StoreProductCount(ctx, storeID)
}

func (p *ProductRegistryStruct) StoreProductAt(ctx context.Context, storeID uint64, idx uint64) (uint64, error) {
	return p.Internal.StoreProductAt(ctx, storeID, idx)
}

func (p *ProductRegistryStruct) AddProduct(ctx context.Context, storeID uint64, content chash.ContentHash, price types.Amount, quantity uint64, from types.Address) error {
	return p.Internal.AddProduct(ctx, storeID, content, price, quantity, from)
}

func (p *ProductRegistryStruct) UpdatePrice(ctx context.Context, id uint64, price types.Amount, from types.Address) error {
	return p.Internal.UpdatePrice(ctx, id, price, from)
}

func (p *ProductRegistryStruct) UpdateQuantity(ctx context.Context, id uint64, quantity uint64, from types.Address) error {
	return p.Internal.UpdateQuantity(ctx, id, quantity, from)
}

func (p *ProductRegistryStruct) UpdatePriceAndQuantity(ctx context.Context, id uint64, price types.Amount, quantity uint64, from types.Address) error {
	return p.Internal.UpdatePriceAndQuantity(ctx, id, price, quantity, from)
}

func (p *ProductRegistryStruct) RemoveProduct(ctx context.Context, id uint64, from types.Address) error {
	return p.Internal.RemoveProduct(ctx, id, from)
}

func (p *ProductRegistryStruct) PurchaseProduct(ctx context.Context, id uint64, quantity uint64, payment types.Amount, from types.Address) error {
	return p.Internal.PurchaseProduct(ctx, id, quantity, payment, from)
}

func (p *ProductRegistryStruct) SubscribeProductAdded(ctx context.Context, storeID uint64) (<-chan api.ProductAdded, error) {
	return p.Internal.SubscribeProductAdded(ctx, storeID)
}

func (p *ProductRegistryStruct) SubscribeProductPurchased(ctx context.Context, productID uint64) (<-chan api.ProductPurchased, error) {
	return p.Internal.SubscribeProductPurchased(ctx, productID)
}

// AccessRegistryStruct implements api.AccessRegistry.
type AccessRegistryStruct struct {
	Internal struct {
		IsAdmin      func(ctx context.Context, addr types.Address) (bool, error) `perm:"read"`
		IsStoreowner func(ctx context.Context, addr types.Address) (bool, error) `perm:"read"`

		StoreownerCount func(ctx context.Context) (uint64, error)                    `perm:"read"`
		StoreownerAt    func(ctx context.Context, idx uint64) (types.Address, error) `perm:"read"`

		AddStoreowner    func(ctx context.Context, addr types.Address, from types.Address) error `perm:"admin"`
		RemoveStoreowner func(ctx context.Context, addr types.Address, from types.Address) error `perm:"admin"`

		SubscribeStoreownerAdded func(ctx context.Context) (<-chan api.StoreownerAdded, error) `perm:"read"`
	}
}

func (a *AccessRegistryStruct) IsAdmin(ctx context.Context, addr types.Address) (bool, error) {
	return a.Internal.IsAdmin(ctx, addr)
}

func (a *AccessRegistryStruct) IsStoreowner(ctx context.Context, addr types.Address) (bool, error) {
	return a.Internal.IsStoreowner(ctx, addr)
}

func (a *AccessRegistryStruct) StoreownerCount(ctx context.Context) (uint64, error) {
	return a.Internal.StoreownerCount(ctx)
}

func (a *AccessRegistryStruct) StoreownerAt(ctx context.Context, idx uint64) (types.Address, error) {
	return a.Internal.StoreownerAt(ctx, idx)
}

func (a *AccessRegistryStruct) AddStoreowner(ctx context.Context, addr types.Address, from types.Address) error {
	return a.Internal.AddStoreowner(ctx, addr, from)
}

func (a *AccessRegistryStruct) RemoveStoreowner(ctx context.Context, addr types.Address, from types.Address) error {
	return a.Internal.RemoveStoreowner(ctx, addr, from)
}

func (a *AccessRegistryStruct) SubscribeStoreownerAdded(ctx context.Context) (<-chan api.StoreownerAdded, error) {
	return a.Internal.SubscribeStoreownerAdded(ctx)
}

// FundsRegistryStruct implements api.FundsRegistry.
type FundsRegistryStruct struct {
	Internal struct {
		Balance  func(ctx context.Context, addr types.Address) (types.Amount, error) `perm:"read"`
		Withdraw func(ctx context.Context, from types.Address) error                 `perm:"write"`
	}
}

func (f *FundsRegistryStruct) Balance(ctx context.Context, addr types.Address) (types.Amount, error) {
	return f.Internal.Balance(ctx, addr)
}

func (f *FundsRegistryStruct) Withdraw(ctx context.Context, from types.Address) error {
	return f.Internal.Withdraw(ctx, from)
}

var (
	_ api.Wallet          = (*WalletStruct)(nil)
	_ api.StoreRegistry   = (*StoreRegistryStruct)(nil)
	_ api.ProductRegistry = (*ProductRegistryStruct)(nil)
	_ api.AccessRegistry  = (*AccessRegistryStruct)(nil)
	_ api.FundsRegistry   = (*FundsRegistryStruct)(nil)
)
