package pipeline

import (
	"context"
	"iter"

	"github.com/fpang/asset-labeler/internal/contentful"
	"github.com/rs/zerolog/log"
)

// Assets lists every asset of an environment lazily, one page per CMS call,
// starting at skip=0. Listing stops once skip+pageSize reaches the reported
// total or a page comes back empty. A page error is yielded once and ends
// the sequence.
func (p *Pipeline) Assets(ctx context.Context, spaceID, environmentID string) iter.Seq2[contentful.Asset, error] {
	pageSize := p.cfg.PageSize
	return func(yield func(contentful.Asset, error) bool) {
		for skip := 0; ; skip += pageSize {
			page, err := p.cms.ListAssets(ctx, spaceID, environmentID, skip, pageSize)
			if err != nil {
				yield(contentful.Asset{}, &CollaboratorError{Op: "list assets", SpaceID: spaceID, Err: err})
				return
			}
			log.Debug().
				Str("spaceId", spaceID).
				Int("skip", skip).
				Int("items", len(page.Items)).
				Int("total", page.Total).
				Msg("Asset page listed")

			for _, a := range page.Items {
				if !yield(a, nil) {
					return
				}
			}
			if len(page.Items) == 0 || skip+pageSize >= page.Total {
				return
			}
		}
	}
}
