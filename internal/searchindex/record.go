// Package searchindex writes labelled asset records to a hosted search index
// and queries them back.
package searchindex

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fpang/asset-labeler/internal/labels"
)

// DefaultIndexName is the index used when none is configured.
const DefaultIndexName = "art-assets"

// DefaultThumbWidth is the thumbnail width appended to indexed URLs.
const DefaultThumbWidth = 100

// IndexRecord is one searchable asset. The JSON names are the index schema
// read by the search UI and must not change.
type IndexRecord struct {
	ObjectID string         `json:"objectID"`
	SpaceID  string         `json:"space_id"`
	AssetID  string         `json:"asset_id"`
	URL      string         `json:"url"`
	ThumbURL string         `json:"thumb_url"`
	Labels   []labels.Label `json:"Labels"`
}

// TypoSettings controls typo tolerance. A word needs at least
// MinWordSizeFor1Typo characters to match with one typo, and
// MinWordSizeFor2Typos to match with two.
type TypoSettings struct {
	MinWordSizeFor1Typo  int
	MinWordSizeFor2Typos int
}

// DefaultTypoSettings returns the settings applied before every batch run.
func DefaultTypoSettings() TypoSettings {
	return TypoSettings{MinWordSizeFor1Typo: 5, MinWordSizeFor2Typos: 10}
}

// Index is a search index holding IndexRecords keyed by ObjectID.
type Index interface {
	// SaveRecord upserts r. The last write for an ObjectID wins.
	SaveRecord(ctx context.Context, r IndexRecord) error
	// DeleteRecords removes the given objects. Unknown IDs are ignored.
	DeleteRecords(ctx context.Context, objectIDs ...string) error
	ConfigureTypoTolerance(ctx context.Context, s TypoSettings) error
	// Clear removes every record.
	Clear(ctx context.Context) error
	Search(ctx context.Context, query string, limit int) ([]IndexRecord, error)
}

// ObjectID derives the record key of an asset. Reprocessing the same asset
// always targets the same record.
func ObjectID(spaceID, assetID string) string {
	return spaceID + assetID
}

// NewRecord builds the record for an asset.
func NewRecord(spaceID, assetID, url string, result labels.Result) IndexRecord {
	if result == nil {
		result = labels.Result{}
	}
	return IndexRecord{
		ObjectID: ObjectID(spaceID, assetID),
		SpaceID:  spaceID,
		AssetID:  assetID,
		URL:      url,
		ThumbURL: fmt.Sprintf("%s?w=%d", url, DefaultThumbWidth),
		Labels:   result,
	}
}

var widthParam = regexp.MustCompile(`([?&])w=\d+`)

// ThumbnailURL rewrites the w= parameter of an image URL to width, adding it
// when absent.
func ThumbnailURL(url string, width int) string {
	w := strconv.Itoa(width)
	if widthParam.MatchString(url) {
		return widthParam.ReplaceAllString(url, "${1}w="+w)
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "w=" + w
}
