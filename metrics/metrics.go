package metrics

import (
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Tags
var (
	EntityKind, _ = tag.NewKey("entity_kind")
	Action, _     = tag.NewKey("action")
)

// Measures
var (
	ProviderFound       = stats.Int64("conn/provider_found", "Provider presence transitions to found", stats.UnitDimensionless)
	AccountChanges      = stats.Int64("conn/account_changes", "Active account changes observed", stats.UnitDimensionless)
	BindingLoadFailures = stats.Int64("bindings/load_failures", "Registry binding resolution failures", stats.UnitDimensionless)
	EntitiesReconciled  = stats.Int64("market/entities_reconciled", "Entities merged into a listing", stats.UnitDimensionless)
	ExpandFailures      = stats.Int64("market/expand_failures", "Entity expand failures during reconciliation", stats.UnitDimensionless)
	ActionsSubmitted    = stats.Int64("actions/submitted", "Actions submitted to the chain", stats.UnitDimensionless)
	ActionFailures      = stats.Int64("actions/failures", "Actions that failed", stats.UnitDimensionless)
)

// Views
var (
	ProviderFoundView = &view.View{
		Measure:     ProviderFound,
		Aggregation: view.Count(),
	}
	AccountChangesView = &view.View{
		Measure:     AccountChanges,
		Aggregation: view.Count(),
	}
	BindingLoadFailuresView = &view.View{
		Measure:     BindingLoadFailures,
		Aggregation: view.Count(),
	}
	EntitiesReconciledView = &view.View{
		Measure:     EntitiesReconciled,
		Aggregation: view.Sum(),
		TagKeys:     []tag.Key{EntityKind},
	}
	ExpandFailuresView = &view.View{
		Measure:     ExpandFailures,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{EntityKind},
	}
	ActionsSubmittedView = &view.View{
		Measure:     ActionsSubmitted,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Action},
	}
	ActionFailuresView = &view.View{
		Measure:     ActionFailures,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Action},
	}
)

// DefaultViews is an array of metric views suitable for registration.
var DefaultViews = []*view.View{
	ProviderFoundView,
	AccountChangesView,
	BindingLoadFailuresView,
	EntitiesReconciledView,
	ExpandFailuresView,
	ActionsSubmittedView,
	ActionFailuresView,
}
