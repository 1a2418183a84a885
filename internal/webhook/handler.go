// Package webhook receives Contentful webhook calls for asset events.
//
// Contentful sends the asset JSON as the body and names the event in the
// X-Contentful-Topic header, e.g. "ContentManagement.Asset.create". The
// handler authenticates the call with a shared secret header, then:
//
//   - create, save, auto_save: queues the asset for labelling (202)
//   - delete, archive, unpublish: removes the asset's record (200)
//   - any other topic: acknowledged and ignored (200)
//
// Reference: https://www.contentful.com/developers/docs/webhooks/overview/
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/asset-labeler/internal/trigger"
)

// maxBodySize is the maximum accepted request body (1 MB).
const maxBodySize = 1 << 20

// Header names.
const (
	TopicHeader  = "X-Contentful-Topic"
	SecretHeader = "X-Webhook-Secret"
)

// AssetDispatcher queues an asset for labelling.
type AssetDispatcher interface {
	DispatchAsset(ctx context.Context, ev trigger.AssetCreateEvent) error
}

// AssetRemover deletes the record of an asset.
type AssetRemover interface {
	RemoveAsset(ctx context.Context, spaceID, assetID string) error
}

// Handler serves the Contentful webhook endpoint.
type Handler struct {
	secret     string
	dispatcher AssetDispatcher
	remover    AssetRemover
}

// NewHandler creates a webhook handler. secret must match the value of the
// X-Webhook-Secret header configured on the Contentful webhook.
func NewHandler(secret string, dispatcher AssetDispatcher, remover AssetRemover) *Handler {
	return &Handler{secret: secret, dispatcher: dispatcher, remover: remover}
}

type action int

const (
	actionIgnore action = iota
	actionIndex
	actionRemove
)

// classify maps a topic to an action. Only Asset topics act.
func classify(topic string) action {
	parts := strings.Split(topic, ".")
	if len(parts) != 3 || parts[1] != "Asset" {
		return actionIgnore
	}
	switch parts[2] {
	case "create", "save", "auto_save":
		if parts[0] == "ContentManagement" {
			return actionIndex
		}
	case "delete", "archive", "unpublish":
		return actionRemove
	}
	return actionIgnore
}

// ServeHTTP handles POST webhook deliveries.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r.Header.Get(SecretHeader)) {
		log.Warn().Msg("Webhook: invalid or missing secret")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	topic := r.Header.Get(TopicHeader)
	act := classify(topic)
	if act == actionIgnore {
		log.Debug().Str("topic", topic).Msg("Webhook: topic ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Msg("Webhook: failed to read body")
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	ev, err := trigger.ParseAssetCreateEvent(body)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Webhook: invalid asset payload")
		status := http.StatusBadRequest
		if errors.Is(err, trigger.ErrMissingField) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, "invalid asset payload", status)
		return
	}
	logger := log.With().Str("topic", topic).Str("spaceId", ev.SpaceID).Str("assetId", ev.AssetID).Logger()

	switch act {
	case actionIndex:
		if err := h.dispatcher.DispatchAsset(r.Context(), ev); err != nil {
			logger.Error().Err(err).Msg("Webhook: failed to queue asset")
			http.Error(w, "failed to queue asset", http.StatusInternalServerError)
			return
		}
		logger.Info().Msg("Webhook: asset queued for labelling")
		w.WriteHeader(http.StatusAccepted)
	case actionRemove:
		if err := h.remover.RemoveAsset(r.Context(), ev.SpaceID, ev.AssetID); err != nil {
			logger.Error().Err(err).Msg("Webhook: failed to remove asset")
			http.Error(w, "failed to remove asset", http.StatusInternalServerError)
			return
		}
		logger.Info().Msg("Webhook: asset record removed")
		w.WriteHeader(http.StatusOK)
	}
}

// authorized compares the secret in constant time. An unset secret rejects
// every call.
func (h *Handler) authorized(got string) bool {
	if h.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}
