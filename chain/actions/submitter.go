// Package actions submits marketplace mutations. Every action moves through
// three phases: idle, loading while the blob uploads and the registry call
// are in flight, and success once confirmed. Failure resets the action to
// idle so the user can re-trigger it; nothing retries on its own.
package actions

import (
	"context"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"golang.org/x/xerrors"

	"github.com/blockmarket/blockmarket/alerting"
	"github.com/blockmarket/blockmarket/blobstore"
	"github.com/blockmarket/blockmarket/chain/bindings"
	"github.com/blockmarket/blockmarket/chain/types"
	"github.com/blockmarket/blockmarket/lib/chash"
	"github.com/blockmarket/blockmarket/metrics"
)

var log = logging.Logger("actions")

// Action names one user-triggered mutation. Statuses are tracked per
// action, not per entity.
type Action string

const (
	ActionAddStore      Action = "add-store"
	ActionUpdateStore   Action = "update-store"
	ActionRemoveStore   Action = "remove-store"
	ActionAddProduct    Action = "add-product"
	ActionUpdateProduct Action = "update-product"
	ActionRemoveProduct Action = "remove-product"
	ActionPurchase      Action = "purchase"
	ActionAppointOwner  Action = "appoint-owner"
	ActionDismissOwner  Action = "dismiss-owner"
	ActionWithdraw      Action = "withdraw"
)

// Draft is the off-chain half of a store or product: descriptor fields plus
// optional raw image bytes. It is published to the blob store before the
// registry call, so the chain only ever references content that resolves.
type Draft struct {
	Name        string
	Description string
	Image       []byte
}

// AccountSource yields the account mutations are signed with.
type AccountSource interface {
	CurrentAccount() (types.Address, error)
}

// Submitter runs the action pipeline: resolve the current account, publish
// blobs, call the registry, settle the status.
type Submitter struct {
	bindings *bindings.Cache
	blobs    blobstore.Blobstore
	account  AccountSource
	notifier *alerting.Notifier

	lk       sync.Mutex
	statuses map[Action]types.Status
}

func NewSubmitter(cache *bindings.Cache, blobs blobstore.Blobstore, account AccountSource, notifier *alerting.Notifier) *Submitter {
	return &Submitter{
		bindings: cache,
		blobs:    blobs,
		account:  account,
		notifier: notifier,
		statuses: make(map[Action]types.Status),
	}
}

// Status returns the current phase of an action.
func (s *Submitter) Status(a Action) types.Status {
	s.lk.Lock()
	defer s.lk.Unlock()
	return s.statuses[a]
}

// Reset clears a settled action back to idle. A loading action cannot be
// reset; it settles on its own.
func (s *Submitter) Reset(a Action) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.statuses[a] != types.StatusLoading {
		s.statuses[a] = types.StatusIdle
	}
}

// run executes one action under the status machine. The account is
// resolved before any side effect; with no account the action never starts.
func (s *Submitter) run(ctx context.Context, a Action, fn func(from types.Address) error) error {
	from, err := s.account.CurrentAccount()
	if err != nil {
		return err
	}

	s.lk.Lock()
	if s.statuses[a] == types.StatusLoading {
		s.lk.Unlock()
		return xerrors.Errorf("action %s already in flight", a)
	}
	s.statuses[a] = types.StatusLoading
	s.lk.Unlock()

	ctx, _ = tag.New(ctx, tag.Upsert(metrics.Action, string(a)))
	stats.Record(ctx, metrics.ActionsSubmitted.M(1))

	if err := fn(from); err != nil {
		stats.Record(ctx, metrics.ActionFailures.M(1))
		s.notifier.Errorf("actions", "%s: %s", a, err)

		s.lk.Lock()
		s.statuses[a] = types.StatusIdle
		s.lk.Unlock()
		return err
	}

	log.Infow("action confirmed", "action", a, "from", from)
	s.lk.Lock()
	s.statuses[a] = types.StatusSuccess
	s.lk.Unlock()
	return nil
}

// publishDraft uploads the image (if any) and the descriptor, pins both,
// and returns the descriptor's content hash.
func (s *Submitter) publishDraft(ctx context.Context, d Draft) (chash.ContentHash, error) {
	desc := blobstore.Descriptor{
		Name:        d.Name,
		Description: d.Description,
	}

	if len(d.Image) > 0 {
		imgRef, err := s.blobs.Put(ctx, d.Image)
		if err != nil {
			return chash.Undef, xerrors.Errorf("publishing image: %w", err)
		}
		if err := s.blobs.Pin(ctx, imgRef); err != nil {
			return chash.Undef, xerrors.Errorf("pinning image %s: %w", imgRef, err)
		}
		desc.Image = imgRef.String()
	}

	ref, err := blobstore.PutDescriptor(ctx, s.blobs, desc)
	if err != nil {
		return chash.Undef, xerrors.Errorf("publishing descriptor: %w", err)
	}
	if err := s.blobs.Pin(ctx, ref); err != nil {
		return chash.Undef, xerrors.Errorf("pinning descriptor %s: %w", ref, err)
	}

	return chash.FromCid(ref)
}

// AddStore publishes the draft and registers the store.
func (s *Submitter) AddStore(ctx context.Context, d Draft) error {
	return s.run(ctx, ActionAddStore, func(from types.Address) error {
		reg, err := s.bindings.Stores()
		if err != nil {
			return err
		}
		content, err := s.publishDraft(ctx, d)
		if err != nil {
			return err
		}
		return reg.AddStore(ctx, content, from)
	})
}

// UpdateStore publishes the new draft and points the store at it.
func (s *Submitter) UpdateStore(ctx context.Context, id uint64, d Draft) error {
	return s.run(ctx, ActionUpdateStore, func(from types.Address) error {
		reg, err := s.bindings.Stores()
		if err != nil {
			return err
		}
		content, err := s.publishDraft(ctx, d)
		if err != nil {
			return err
		}
		return reg.UpdateStore(ctx, id, content, from)
	})
}

func (s *Submitter) RemoveStore(ctx context.Context, id uint64) error {
	return s.run(ctx, ActionRemoveStore, func(from types.Address) error {
		reg, err := s.bindings.Stores()
		if err != nil {
			return err
		}
		return reg.RemoveStore(ctx, id, from)
	})
}

// AddProduct publishes the draft and registers the product. Price is given
// in display units.
func (s *Submitter) AddProduct(ctx context.Context, storeID uint64, d Draft, priceUnits string, quantity uint64) error {
	return s.run(ctx, ActionAddProduct, func(from types.Address) error {
		price, err := types.ParseUnits(priceUnits)
		if err != nil {
			return err
		}
		reg, err := s.bindings.Products()
		if err != nil {
			return err
		}
		content, err := s.publishDraft(ctx, d)
		if err != nil {
			return err
		}
		return reg.AddProduct(ctx, storeID, content, price, quantity, from)
	})
}

func (s *Submitter) ChangePrice(ctx context.Context, id uint64, priceUnits string) error {
	return s.run(ctx, ActionUpdateProduct, func(from types.Address) error {
		price, err := types.ParseUnits(priceUnits)
		if err != nil {
			return err
		}
		reg, err := s.bindings.Products()
		if err != nil {
			return err
		}
		return reg.UpdatePrice(ctx, id, price, from)
	})
}

func (s *Submitter) ChangeQuantity(ctx context.Context, id uint64, quantity uint64) error {
	return s.run(ctx, ActionUpdateProduct, func(from types.Address) error {
		reg, err := s.bindings.Products()
		if err != nil {
			return err
		}
		return reg.UpdateQuantity(ctx, id, quantity, from)
	})
}

func (s *Submitter) ChangePriceAndQuantity(ctx context.Context, id uint64, priceUnits string, quantity uint64) error {
	return s.run(ctx, ActionUpdateProduct, func(from types.Address) error {
		price, err := types.ParseUnits(priceUnits)
		if err != nil {
			return err
		}
		reg, err := s.bindings.Products()
		if err != nil {
			return err
		}
		return reg.UpdatePriceAndQuantity(ctx, id, price, quantity, from)
	})
}

func (s *Submitter) RemoveProduct(ctx context.Context, id uint64) error {
	return s.run(ctx, ActionRemoveProduct, func(from types.Address) error {
		reg, err := s.bindings.Products()
		if err != nil {
			return err
		}
		return reg.RemoveProduct(ctx, id, from)
	})
}

// Purchase buys quantity units at the display-unit price the caller was
// shown, attaching payment = price × quantity in base units. If the
// chain-side price moved and the payment no longer covers it, the registry
// rejects the purchase.
func (s *Submitter) Purchase(ctx context.Context, id uint64, quantity uint64, priceUnits string) error {
	return s.run(ctx, ActionPurchase, func(from types.Address) error {
		price, err := types.ParseUnits(priceUnits)
		if err != nil {
			return err
		}
		reg, err := s.bindings.Products()
		if err != nil {
			return err
		}
		return reg.PurchaseProduct(ctx, id, quantity, types.TotalPayment(price, quantity), from)
	})
}

func (s *Submitter) AppointOwner(ctx context.Context, addr types.Address) error {
	return s.run(ctx, ActionAppointOwner, func(from types.Address) error {
		reg, err := s.bindings.Access()
		if err != nil {
			return err
		}
		return reg.AddStoreowner(ctx, addr, from)
	})
}

func (s *Submitter) DismissOwner(ctx context.Context, addr types.Address) error {
	return s.run(ctx, ActionDismissOwner, func(from types.Address) error {
		reg, err := s.bindings.Access()
		if err != nil {
			return err
		}
		return reg.RemoveStoreowner(ctx, addr, from)
	})
}

// Withdraw pulls the caller's accumulated marketplace balance.
func (s *Submitter) Withdraw(ctx context.Context) error {
	return s.run(ctx, ActionWithdraw, func(from types.Address) error {
		reg, err := s.bindings.Funds()
		if err != nil {
			return err
		}
		return reg.Withdraw(ctx, from)
	})
}
