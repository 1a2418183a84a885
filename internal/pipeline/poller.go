package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/fpang/asset-labeler/internal/trigger"
	"github.com/rs/zerolog/log"
)

// PollAssetURL fetches the asset until Contentful reports a file URL, making
// at most maxRetries calls spaced wait apart. No sleep follows the final
// attempt. Non-positive arguments select DefaultPollWait and
// DefaultPollRetries. The returned URL is absolute.
//
// A CMS error aborts polling. Exhausting the budget yields *NotReadyError.
func (p *Pipeline) PollAssetURL(ctx context.Context, ref trigger.AssetCreateEvent, wait time.Duration, maxRetries int) (string, error) {
	if wait <= 0 {
		wait = DefaultPollWait
	}
	if maxRetries <= 0 {
		maxRetries = DefaultPollRetries
	}
	logger := log.With().Str("spaceId", ref.SpaceID).Str("assetId", ref.AssetID).Logger()

	for attempt := 1; attempt <= maxRetries; attempt++ {
		asset, err := p.cms.GetAsset(ctx, ref.SpaceID, ref.EnvironmentID, ref.AssetID)
		if err != nil {
			return "", &CollaboratorError{Op: "get asset", SpaceID: ref.SpaceID, AssetID: ref.AssetID, Err: err}
		}
		if u := asset.FileURL(p.cfg.Locale); u != "" {
			logger.Debug().Int("attempt", attempt).Str("url", u).Msg("Asset file URL available")
			return absoluteURL(p.cfg.EventURLScheme, u), nil
		}
		if attempt == maxRetries {
			break
		}

		logger.Debug().Int("attempt", attempt).Dur("wait", wait).Msg("Asset file not processed yet, waiting")
		if err := p.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	logger.Warn().Int("attempts", maxRetries).Msg("Asset file URL never appeared")
	return "", &NotReadyError{Ref: ref, Attempts: maxRetries}
}

// absoluteURL completes a protocol-relative URL ("//host/path") with scheme.
func absoluteURL(scheme, u string) string {
	if strings.HasPrefix(u, "//") {
		return scheme + ":" + u
	}
	return u
}
