// Package trigger decodes the inbound notifications that start one pipeline
// invocation: Contentful asset-creation events and S3 upload notifications.
package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// contentfulAPIBase is the Content Management API host used for asset URLs.
const contentfulAPIBase = "https://api.contentful.com"

// ErrMissingField is returned when a payload lacks a required identifier.
var ErrMissingField = errors.New("missing required field")

// AssetCreateEvent identifies a newly created asset in a Contentful space.
type AssetCreateEvent struct {
	AssetID       string `json:"assetId"`
	EnvironmentID string `json:"environmentId"`
	SpaceID       string `json:"spaceId"`
}

type sysLink struct {
	Sys struct {
		ID string `json:"id"`
	} `json:"sys"`
}

// assetPayload mirrors the subset of a Contentful webhook body we consume.
type assetPayload struct {
	Sys struct {
		ID          string  `json:"id"`
		Space       sysLink `json:"space"`
		Environment sysLink `json:"environment"`
	} `json:"sys"`
}

// ParseAssetCreateEvent decodes sys.space.sys.id, sys.environment.sys.id and
// sys.id from a Contentful asset payload. Other fields are ignored.
func ParseAssetCreateEvent(data []byte) (AssetCreateEvent, error) {
	var p assetPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return AssetCreateEvent{}, fmt.Errorf("decode asset event: %w", err)
	}

	e := AssetCreateEvent{
		AssetID:       p.Sys.ID,
		EnvironmentID: p.Sys.Environment.Sys.ID,
		SpaceID:       p.Sys.Space.Sys.ID,
	}
	switch {
	case e.SpaceID == "":
		return AssetCreateEvent{}, fmt.Errorf("asset event: sys.space.sys.id: %w", ErrMissingField)
	case e.EnvironmentID == "":
		return AssetCreateEvent{}, fmt.Errorf("asset event: sys.environment.sys.id: %w", ErrMissingField)
	case e.AssetID == "":
		return AssetCreateEvent{}, fmt.Errorf("asset event: sys.id: %w", ErrMissingField)
	}
	return e, nil
}

// DecodeAssetEvent accepts either the flat JSON form of AssetCreateEvent
// ({"assetId","environmentId","spaceId"}) or a Contentful asset payload.
func DecodeAssetEvent(data []byte) (AssetCreateEvent, error) {
	var e AssetCreateEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return AssetCreateEvent{}, fmt.Errorf("decode asset event: %w", err)
	}
	if e == (AssetCreateEvent{}) {
		return ParseAssetCreateEvent(data)
	}
	if e.SpaceID == "" || e.EnvironmentID == "" || e.AssetID == "" {
		return AssetCreateEvent{}, fmt.Errorf("asset event %+v: %w", e, ErrMissingField)
	}
	return e, nil
}

// URL returns the Content Management API URL of the asset.
func (e AssetCreateEvent) URL() string {
	return fmt.Sprintf("%s/spaces/%s/environments/%s/assets/%s",
		contentfulAPIBase, e.SpaceID, e.EnvironmentID, e.AssetID)
}

// UploadEvent identifies an object written to an S3 bucket.
type UploadEvent struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// ParseUploadEvent decodes a single S3 notification record
// ({"s3":{"bucket":{"name":...},"object":{"key":...}}}).
func ParseUploadEvent(data []byte) (UploadEvent, error) {
	var record events.S3EventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return UploadEvent{}, fmt.Errorf("decode upload event: %w", err)
	}
	return UploadEventFromRecord(record)
}

// UploadEventFromRecord converts one record of a Lambda S3 event. The object
// key arrives URL-encoded and is decoded here.
func UploadEventFromRecord(record events.S3EventRecord) (UploadEvent, error) {
	bucket := record.S3.Bucket.Name
	if bucket == "" {
		return UploadEvent{}, fmt.Errorf("upload event: s3.bucket.name: %w", ErrMissingField)
	}
	if record.S3.Object.Key == "" {
		return UploadEvent{}, fmt.Errorf("upload event: s3.object.key: %w", ErrMissingField)
	}

	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return UploadEvent{}, fmt.Errorf("upload event: decode key %q: %w", record.S3.Object.Key, err)
	}
	return UploadEvent{Bucket: bucket, Key: key}, nil
}

// UploadEventsFromS3 converts every record of a Lambda S3 event batch.
// The first malformed record aborts the conversion.
func UploadEventsFromS3(e events.S3Event) ([]UploadEvent, error) {
	out := make([]UploadEvent, 0, len(e.Records))
	for i, record := range e.Records {
		u, err := UploadEventFromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// ObjectURI returns the s3:// locator of the uploaded object.
func (u UploadEvent) ObjectURI() string {
	return fmt.Sprintf("s3://%s/%s", u.Bucket, u.Key)
}
