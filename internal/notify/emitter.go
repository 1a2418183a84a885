// Package notify publishes reindex run results to Amazon EventBridge.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/pipeline"
)

// Event identity on the bus.
const (
	Source                = "asset-labeler"
	DetailTypeRunComplete = "Reindex Run Completed"
)

// maxFailedIDs caps the asset IDs carried in one event. EventBridge entries
// are limited to 256 KB.
const maxFailedIDs = 100

// API is the subset of *eventbridge.Client used by Emitter.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// RunCompletedDetail is the event detail.
type RunCompletedDetail struct {
	RunID           string   `json:"runId"`
	SpaceID         string   `json:"spaceId"`
	EnvironmentID   string   `json:"environmentId"`
	Mode            string   `json:"mode"`
	Listed          int      `json:"listed"`
	Indexed         int      `json:"indexed"`
	SkippedNoURL    int      `json:"skippedNoUrl"`
	SkippedTooLarge int      `json:"skippedTooLarge"`
	Failed          int      `json:"failed"`
	FailedAssetIDs  []string `json:"failedAssetIds,omitempty"`
	Aborted         string   `json:"aborted,omitempty"`
	DurationMs      int64    `json:"durationMs"`
}

// Emitter implements pipeline.RunNotifier.
type Emitter struct {
	client  API
	busName string
}

var _ pipeline.RunNotifier = (*Emitter)(nil)

// NewEmitter publishes to the named bus.
func NewEmitter(client API, busName string) *Emitter {
	return &Emitter{client: client, busName: busName}
}

// RunCompleted publishes one event describing s.
func (e *Emitter) RunCompleted(ctx context.Context, s *pipeline.Summary) error {
	detail := RunCompletedDetail{
		RunID:           s.RunID,
		SpaceID:         s.SpaceID,
		EnvironmentID:   s.EnvironmentID,
		Mode:            string(s.Mode),
		Listed:          s.Listed(),
		Indexed:         s.Indexed,
		SkippedNoURL:    s.SkippedNoURL,
		SkippedTooLarge: s.SkippedTooLarge,
		Failed:          s.Failed,
		Aborted:         s.Aborted,
		DurationMs:      s.FinishedAt.Sub(s.StartedAt).Milliseconds(),
	}
	for _, o := range s.Outcomes {
		if o.Status == pipeline.StatusFailed && len(detail.FailedAssetIDs) < maxFailedIDs {
			detail.FailedAssetIDs = append(detail.FailedAssetIDs, o.AssetID)
		}
	}

	body, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal event detail: %w", err)
	}

	out, err := e.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(e.busName),
			Source:       aws.String(Source),
			DetailType:   aws.String(DetailTypeRunComplete),
			Detail:       aws.String(string(body)),
			Resources:    []string{},
		}},
	})
	if err != nil {
		return fmt.Errorf("PutEvents: %w", err)
	}
	if out.FailedEntryCount > 0 && len(out.Entries) > 0 {
		entry := out.Entries[0]
		return fmt.Errorf("PutEvents rejected entry: %s %s", aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
	}

	log.Debug().Str("runId", s.RunID).Str("bus", e.busName).Msg("Run completed event published")
	return nil
}
