// Package market mirrors registry state into expanded, observable entity
// lists.
//
// Each list is reconciled from two sources running concurrently: a bulk walk
// of the registry's id counter and a live event subscription opened before
// the counter is read. The two overlap on entities created mid-load; the
// merge layer deduplicates by id, so the list converges to the same contents
// either way.
package market

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/alerting"
	"github.com/blockmarket/blockmarket/api"
	"github.com/blockmarket/blockmarket/blobstore"
	"github.com/blockmarket/blockmarket/chain/bindings"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/lib/chash"
	"github.com/blockmarket/blockmarket/metrics"
)

var log = logging.Logger("market")

// descCacheSize bounds the descriptor cache. Descriptors are immutable per
// content hash, so cached entries never go stale.
const descCacheSize = 512

// Engine turns raw registry records into expanded entities and maintains
// live lists over them. It holds no entity state of its own; every Watch
// owns its list.
type Engine struct {
	bindings *bindings.Cache
	blobs    blobstore.Blobstore
	notifier *alerting.Notifier

	descCache *lru.Cache[cid.Cid, blobstore.Descriptor]
}

func New(cache *bindings.Cache, blobs blobstore.Blobstore, notifier *alerting.Notifier) (*Engine, error) {
	dc, err := lru.New[cid.Cid, blobstore.Descriptor](descCacheSize)
	if err != nil {
		return nil, xerrors.Errorf("creating descriptor cache: %w", err)
	}

	return &Engine{
		bindings:  cache,
		blobs:     blobs,
		notifier:  notifier,
		descCache: dc,
	}, nil
}

// descriptor fetches the descriptor blob for a content hash, through the
// cache.
func (e *Engine) descriptor(ctx context.Context, content chash.ContentHash) (blobstore.Descriptor, error) {
	ref := content.Cid()
	if d, ok := e.descCache.Get(ref); ok {
		return d, nil
	}

	d, err := blobstore.GetDescriptor(ctx, e.blobs, ref)
	if err != nil {
		return blobstore.Descriptor{}, err
	}
	e.descCache.Add(ref, d)
	return d, nil
}

// expandStore joins a registry record with its descriptor, image bytes and
// product count.
func (e *Engine) expandStore(ctx context.Context, info api.StoreInfo) (types.Store, error) {
	desc, err := e.descriptor(ctx, info.Content)
	if err != nil {
		return types.Store{}, xerrors.Errorf("store %d: %w", info.ID, err)
	}

	st := types.Store{
		ID:          info.ID,
		Owner:       info.Owner,
		Content:     info.Content,
		CreatedAt:   info.CreatedAt,
		UpdatedAt:   info.UpdatedAt,
		Name:        desc.Name,
		Description: desc.Description,
	}

	if desc.Image != "" {
		ref, err := desc.ImageCid()
		if err != nil {
			return types.Store{}, xerrors.Errorf("store %d: %w", info.ID, err)
		}
		img, err := e.blobs.Get(ctx, ref)
		if err != nil {
			return types.Store{}, xerrors.Errorf("store %d image: %w", info.ID, err)
		}
		st.ImageRef, st.Image = ref, img
	}

	products, err := e.bindings.Products()
	if err != nil {
		return types.Store{}, err
	}
	count, err := products.StoreProductCount(ctx, info.ID)
	if err != nil {
		return types.Store{}, xerrors.Errorf("store %d product count: %w", info.ID, err)
	}
	st.ProductCount = count

	return st, nil
}

// expandProduct joins a registry record with its descriptor and its parent
// store's name and owner. A product whose parent store is gone fails to
// expand; it has no valid rendering.
func (e *Engine) expandProduct(ctx context.Context, info api.ProductInfo) (types.Product, error) {
	desc, err := e.descriptor(ctx, info.Content)
	if err != nil {
		return types.Product{}, xerrors.Errorf("product %d: %w", info.ID, err)
	}

	stores, err := e.bindings.Stores()
	if err != nil {
		return types.Product{}, err
	}
	parent, err := stores.GetStore(ctx, info.StoreID)
	if err != nil {
		return types.Product{}, xerrors.Errorf("product %d parent store: %w", info.ID, err)
	}
	if !parent.Exists {
		return types.Product{}, xerrors.Errorf("product %d: parent store %d does not exist", info.ID, info.StoreID)
	}
	parentDesc, err := e.descriptor(ctx, parent.Content)
	if err != nil {
		return types.Product{}, xerrors.Errorf("product %d parent store: %w", info.ID, err)
	}

	p := types.Product{
		ID:          info.ID,
		StoreID:     info.StoreID,
		Content:     info.Content,
		Price:       info.Price,
		Quantity:    info.Quantity,
		CreatedAt:   info.CreatedAt,
		UpdatedAt:   info.UpdatedAt,
		StoreName:   parentDesc.Name,
		StoreOwner:  parent.Owner,
		Name:        desc.Name,
		Description: desc.Description,
	}

	if desc.Image != "" {
		ref, err := desc.ImageCid()
		if err != nil {
			return types.Product{}, xerrors.Errorf("product %d: %w", info.ID, err)
		}
		img, err := e.blobs.Get(ctx, ref)
		if err != nil {
			return types.Product{}, xerrors.Errorf("product %d image: %w", info.ID, err)
		}
		p.ImageRef, p.Image = ref, img
	}

	return p, nil
}

// expandFailed records a degraded expansion. Failures caused by the watch
// being stopped mid-load are discarded, not reported; the user tore the
// view down.
func (e *Engine) expandFailed(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	stats.Record(ctx, metrics.ExpandFailures.M(1))
	e.notifier.Errorf("market", "expanding entity: %s", err)
}

// finishLoad settles a watch's status after its bulk walk. A stopped watch
// keeps whatever status it had; its snapshot is dead anyway.
func finishLoad[K comparable, T any](ctx context.Context, w *Watch[K, T], degraded bool) {
	if ctx.Err() != nil {
		return
	}
	stats.Record(ctx, metrics.EntitiesReconciled.M(int64(w.size())))
	if degraded {
		w.setStatus(types.StatusPartial)
	} else {
		w.setStatus(types.StatusSuccess)
	}
}

// Role resolves the role of an address: admin wins over storeowner, and
// everyone else is a shopper.
func (e *Engine) Role(ctx context.Context, addr types.Address) (types.Role, error) {
	access, err := e.bindings.Access()
	if err != nil {
		return "", err
	}

	admin, err := access.IsAdmin(ctx, addr)
	if err != nil {
		return "", xerrors.Errorf("querying admin role: %w", err)
	}
	if admin {
		return types.RoleAdmin, nil
	}

	owner, err := access.IsStoreowner(ctx, addr)
	if err != nil {
		return "", xerrors.Errorf("querying storeowner role: %w", err)
	}
	if owner {
		return types.RoleOwner, nil
	}
	return types.RoleShopper, nil
}

// Balance returns the withdrawable marketplace balance of an address.
func (e *Engine) Balance(ctx context.Context, addr types.Address) (types.Amount, error) {
	funds, err := e.bindings.Funds()
	if err != nil {
		return types.ZeroAmount(), err
	}
	return funds.Balance(ctx, addr)
}
