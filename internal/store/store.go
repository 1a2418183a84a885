// Package store keeps a ledger of batch reindex runs in DynamoDB.
//
// All records of a run share the partition key RUN#{runId}. The sort key
// SUMMARY holds the tallies and ASSET#{assetId} holds one record per asset
// that was not indexed, so failures can be inspected and retried. A TTL
// attribute (expiresAt) removes runs after RunTTL.
package store

import (
	"time"
)

// RunTTL is how long run records are kept.
const RunTTL = 30 * 24 * time.Hour

// RunRecord is the SUMMARY item of a run.
type RunRecord struct {
	RunID           string `dynamodbav:"-" json:"runId"`
	SpaceID         string `dynamodbav:"spaceId" json:"spaceId"`
	EnvironmentID   string `dynamodbav:"environmentId" json:"environmentId"`
	Mode            string `dynamodbav:"mode" json:"mode"`
	StartedAt       int64  `dynamodbav:"startedAt" json:"startedAt"`
	FinishedAt      int64  `dynamodbav:"finishedAt" json:"finishedAt"`
	Listed          int    `dynamodbav:"listed" json:"listed"`
	Indexed         int    `dynamodbav:"indexed" json:"indexed"`
	SkippedNoURL    int    `dynamodbav:"skippedNoUrl" json:"skippedNoUrl"`
	SkippedTooLarge int    `dynamodbav:"skippedTooLarge" json:"skippedTooLarge"`
	Failed          int    `dynamodbav:"failed" json:"failed"`
	Aborted         string `dynamodbav:"aborted,omitempty" json:"aborted,omitempty"`
}

// AssetRecord is the ASSET# item of an asset that was skipped or failed.
type AssetRecord struct {
	AssetID    string `dynamodbav:"assetId" json:"assetId"`
	Status     string `dynamodbav:"status" json:"status"`
	Error      string `dynamodbav:"error,omitempty" json:"error,omitempty"`
	DurationMs int64  `dynamodbav:"durationMs" json:"durationMs"`
}
