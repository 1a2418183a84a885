package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/pipeline"
)

const (
	pkPrefix      = "RUN#"
	skSummary     = "SUMMARY"
	skAssetPrefix = "ASSET#"

	// maxBatchWrite is the DynamoDB BatchWriteItem limit per call.
	maxBatchWrite = 25

	// maxUnprocessedRetries bounds resubmission of throttled batch items.
	maxUnprocessedRetries = 3
)

// DynamoAPI is the subset of *dynamodb.Client used by RunStore.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// RunStore implements pipeline.RunRecorder on a DynamoDB table.
type RunStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

var _ pipeline.RunRecorder = (*RunStore)(nil)

// NewRunStore creates a RunStore for the given table.
func NewRunStore(client DynamoAPI, tableName string) *RunStore {
	return &RunStore{client: client, tableName: tableName, now: time.Now}
}

func runPK(runID string) string {
	return pkPrefix + runID
}

func (s *RunStore) expiresAt() string {
	return strconv.FormatInt(s.now().Add(RunTTL).Unix(), 10)
}

// item marshals data and adds the key and TTL attributes.
func (s *RunStore) item(pk, sk string, data any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: s.expiresAt()}
	return item, nil
}

// RecordRun writes the run summary and one item per asset that was not
// indexed.
func (s *RunStore) RecordRun(ctx context.Context, sum *pipeline.Summary) error {
	pk := runPK(sum.RunID)
	summary, err := s.item(pk, skSummary, RunRecord{
		SpaceID:         sum.SpaceID,
		EnvironmentID:   sum.EnvironmentID,
		Mode:            string(sum.Mode),
		StartedAt:       sum.StartedAt.Unix(),
		FinishedAt:      sum.FinishedAt.Unix(),
		Listed:          sum.Listed(),
		Indexed:         sum.Indexed,
		SkippedNoURL:    sum.SkippedNoURL,
		SkippedTooLarge: sum.SkippedTooLarge,
		Failed:          sum.Failed,
		Aborted:         sum.Aborted,
	})
	if err != nil {
		return err
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &s.tableName, Item: summary}); err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, skSummary, err)
	}

	var writes []types.WriteRequest
	for _, o := range sum.Outcomes {
		if o.Status == pipeline.StatusIndexed {
			continue
		}
		item, err := s.item(pk, skAssetPrefix+o.AssetID, AssetRecord{
			AssetID:    o.AssetID,
			Status:     string(o.Status),
			Error:      o.Error,
			DurationMs: o.Duration.Milliseconds(),
		})
		if err != nil {
			return err
		}
		writes = append(writes, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	if err := s.batchWrite(ctx, writes); err != nil {
		return err
	}

	log.Debug().Str("runId", sum.RunID).Int("assetRecords", len(writes)).Msg("Reindex run recorded")
	return nil
}

// batchWrite submits writes in chunks of maxBatchWrite, resubmitting
// unprocessed items a bounded number of times.
func (s *RunStore) batchWrite(ctx context.Context, writes []types.WriteRequest) error {
	for i := 0; i < len(writes); i += maxBatchWrite {
		end := min(i+maxBatchWrite, len(writes))
		pending := map[string][]types.WriteRequest{s.tableName: writes[i:end]}

		for attempt := 0; len(pending[s.tableName]) > 0; attempt++ {
			if attempt > maxUnprocessedRetries {
				return fmt.Errorf("BatchWriteItem: %d items unprocessed after %d retries", len(pending[s.tableName]), maxUnprocessedRetries)
			}
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return fmt.Errorf("BatchWriteItem (%d items): %w", len(pending[s.tableName]), err)
			}
			pending = out.UnprocessedItems
		}
	}
	return nil
}

// GetRun returns the summary of a run, or nil if it does not exist.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	pk := runPK(runID)
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: skSummary},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, skSummary, err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var rec RunRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal PK=%s: %w", pk, err)
	}
	rec.RunID = runID
	return &rec, nil
}

// ListAssetRecords returns the non-indexed assets of a run.
func (s *RunStore) ListAssetRecords(ctx context.Context, runID string) ([]AssetRecord, error) {
	pk := runPK(runID)
	var records []AssetRecord
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              &s.tableName,
			KeyConditionExpression: strPtr("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pk},
				":sk": &types.AttributeValueMemberS{Value: skAssetPrefix},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("Query PK=%s: %w", pk, err)
		}
		var page []AssetRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal PK=%s: %w", pk, err)
		}
		records = append(records, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func strPtr(s string) *string {
	return &s
}
