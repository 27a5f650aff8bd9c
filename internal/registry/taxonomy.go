package registry

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/store"
)

// LoadTaxonomies fetches every taxonomy list plus the scoring weight tables
// in parallel. The enrichment agent needs all of them before the first item,
// so one failed load fails the whole run.
func LoadTaxonomies(ctx context.Context, s store.Store) (*model.Taxonomies, error) {
	var tax model.Taxonomies

	g, ctx := errgroup.WithContext(ctx)

	lists := []struct {
		kind string
		dst  *[]string
	}{
		{store.TaxonomyRole, &tax.Roles},
		{store.TaxonomyIndustry, &tax.Industries},
		{store.TaxonomyTopic, &tax.Topics},
		{store.TaxonomyContentType, &tax.ContentTypes},
		{store.TaxonomyGeography, &tax.Geographies},
		{store.TaxonomyUseCase, &tax.UseCases},
		{store.TaxonomyAgenticCapability, &tax.AgenticCapabilities},
	}
	for _, l := range lists {
		l := l
		g.Go(func() error {
			codes, err := s.ListTaxonomy(ctx, l.kind)
			if err != nil {
				return err
			}
			*l.dst = codes
			return nil
		})
	}
	g.Go(func() error {
		weights, err := s.ContentTypeWeights(ctx)
		if err != nil {
			return err
		}
		tax.ContentTypeWeights = weights
		return nil
	})
	g.Go(func() error {
		weights, err := s.SourceWeights(ctx)
		if err != nil {
			return err
		}
		tax.SourceWeights = weights
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "registry: load taxonomies")
	}
	return &tax, nil
}
