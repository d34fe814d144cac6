package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ikkim/gamecatalog-backend/internal/app/model"
	"github.com/ikkim/gamecatalog-backend/internal/app/repository"
	apperrors "github.com/ikkim/gamecatalog-backend/internal/errors"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"github.com/ikkim/gamecatalog-backend/pkg/storefront"
	"github.com/ikkim/gamecatalog-backend/pkg/util"
	"golang.org/x/sync/errgroup"
)

// KindSummary counts reconciliation outcomes for one taxonomy kind
type KindSummary struct {
	Seen     int `json:"seen"`
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Failed   int `json:"failed"`
}

// ReconcileSummary is keyed by taxonomy kind
type ReconcileSummary map[model.TaxonomyKind]KindSummary

// Totals sums the counts over every kind
func (s ReconcileSummary) Totals() KindSummary {
	var total KindSummary
	for _, k := range s {
		total.Seen += k.Seen
		total.Created += k.Created
		total.Existing += k.Existing
		total.Failed += k.Failed
	}
	return total
}

type TaxonomyReconciler interface {
	// Reconcile makes sure every taxonomy name referenced by products has a
	// stored row. It waits for every name to settle and never fails as a whole.
	Reconcile(ctx context.Context, products []storefront.Product) ReconcileSummary
}

type taxonomyReconciler struct {
	repo  repository.TaxonomyRepository
	gates *Gates
}

func NewTaxonomyReconciler(repo repository.TaxonomyRepository, gates *Gates) TaxonomyReconciler {
	return &taxonomyReconciler{repo: repo, gates: gates}
}

// TaxonomyNames returns the names of one kind referenced by a product, in
// catalog order: genres are categories and operating systems are platforms.
func TaxonomyNames(kind model.TaxonomyKind, product *storefront.Product) []string {
	switch kind {
	case model.KindDeveloper:
		return product.Developers
	case model.KindPublisher:
		return product.Publishers
	case model.KindCategory:
		return product.GenreNames()
	case model.KindPlatform:
		return product.OperatingSystems
	}
	return nil
}

// CollectNames builds one set of distinct, non-blank names per kind over the
// whole batch. Each set is returned sorted.
func CollectNames(products []storefront.Product) map[model.TaxonomyKind][]string {
	sets := make(map[model.TaxonomyKind]map[string]struct{}, len(model.TaxonomyKinds))
	for _, kind := range model.TaxonomyKinds {
		sets[kind] = make(map[string]struct{})
	}

	for i := range products {
		for _, kind := range model.TaxonomyKinds {
			for _, name := range TaxonomyNames(kind, &products[i]) {
				if strings.TrimSpace(name) == "" {
					continue
				}
				sets[kind][name] = struct{}{}
			}
		}
	}

	names := make(map[model.TaxonomyKind][]string, len(sets))
	for kind, set := range sets {
		list := make([]string, 0, len(set))
		for name := range set {
			list = append(list, name)
		}
		sort.Strings(list)
		names[kind] = list
	}
	return names
}

type reconcileResult int

const (
	resultExisting reconcileResult = iota
	resultCreated
	resultFailed
)

func (r *taxonomyReconciler) Reconcile(ctx context.Context, products []storefront.Product) ReconcileSummary {
	sets := CollectNames(products)

	summary := make(ReconcileSummary, len(sets))
	for kind, names := range sets {
		summary[kind] = KindSummary{Seen: len(names)}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for kind, names := range sets {
		for _, name := range names {
			g.Go(func() error {
				result := r.ensure(ctx, kind, name)

				mu.Lock()
				defer mu.Unlock()
				s := summary[kind]
				switch result {
				case resultCreated:
					s.Created++
				case resultExisting:
					s.Existing++
				default:
					s.Failed++
				}
				summary[kind] = s
				return nil
			})
		}
	}
	_ = g.Wait()

	totals := summary.Totals()
	logger.Info("Taxonomies reconciled", map[string]interface{}{
		"seen":     totals.Seen,
		"created":  totals.Created,
		"existing": totals.Existing,
		"failed":   totals.Failed,
	})
	return summary
}

// ensure looks the name up and creates it when absent. A failed lookup is not
// treated as absence: the name is reported and left alone.
func (r *taxonomyReconciler) ensure(ctx context.Context, kind model.TaxonomyKind, name string) reconcileResult {
	var existing *model.Taxonomy
	err := withGate(ctx, r.gates.Store, func() error {
		var err error
		existing, err = r.repo.FindByName(kind, name)
		return err
	})
	if err != nil {
		lookupErr := &apperrors.EntityLookupError{Collection: string(kind), Name: name, Err: err}
		logger.Error("Failed to look up taxonomy", lookupErr, map[string]interface{}{
			"kind": kind,
			"name": name,
		})
		return resultFailed
	}
	if existing != nil {
		return resultExisting
	}

	entity := &model.Taxonomy{Name: name, Slug: util.Slugify(name)}
	var created bool
	err = withGate(ctx, r.gates.Store, func() error {
		var err error
		created, err = r.repo.CreateOrGet(kind, entity)
		return err
	})
	if err != nil {
		createErr := &apperrors.EntityCreateError{Collection: string(kind), Name: name, Err: err}
		logger.Error("Failed to create taxonomy", createErr, map[string]interface{}{
			"kind": kind,
			"name": name,
		})
		return resultFailed
	}

	if !created {
		return resultExisting
	}
	logger.Debug("Taxonomy created", map[string]interface{}{
		"kind": kind,
		"name": name,
		"slug": entity.Slug,
	})
	return resultCreated
}
