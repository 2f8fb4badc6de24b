package api

import "github.com/blockmarket/blockmarket/chain/types"

// StoreAdded is emitted when a store is created.
type StoreAdded struct {
	StoreID uint64
	Owner   types.Address
}

// ProductAdded is emitted when a product is created, filterable by store.
type ProductAdded struct {
	ProductID uint64
	StoreID   uint64
}

// ProductPurchased is emitted on every sale of a product.
type ProductPurchased struct {
	ProductID   uint64
	NewQuantity uint64
}

// StoreownerAdded is emitted when an admin grants the storeowner role.
type StoreownerAdded struct {
	Owner types.Address
}
