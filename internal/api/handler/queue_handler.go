package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/tenantq/internal/api/middleware"
	"github.com/notifyhub/tenantq/internal/domain"
	"github.com/notifyhub/tenantq/internal/service"
)

// Tenant and consumer identity travel as headers on every queue call.
const (
	HeaderTenantID        = "X-Tenant-ID"
	HeaderConsumerChannel = "X-Consumer-Channel"
)

// QueueHandler exposes the queue engine operations. It is deliberately
// thin: routing, validation, and storage rules all live in the service.
type QueueHandler struct {
	svc           *service.QueueService
	maxClaimBatch int
	logger        *zap.Logger
}

func NewQueueHandler(svc *service.QueueService, maxClaimBatch int, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, maxClaimBatch: maxClaimBatch, logger: logger}
}

// Publish handles POST /api/v1/messages/{eventType}
//
// @Summary     Enqueue a business event
// @Tags        messages
// @Accept      json
// @Produce     json
// @Param       eventType    path      string  true  "Event type"
// @Param       X-Tenant-ID  header    string  true  "Tenant identifier"
// @Success     201          {object}  map[string]int64
// @Failure     404          {object}  map[string]string
// @Failure     422          {object}  map[string]string
// @Router      /api/v1/messages/{eventType} [post]
func (h *QueueHandler) Publish(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "eventType")
	tenantID := r.Header.Get(HeaderTenantID)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	id, err := h.svc.Publish(r.Context(), eventType, tenantID, payload)
	if err != nil {
		h.logger.Warn("publish failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("event_type", eventType),
			zap.String("tenant", tenantID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// Poll handles GET /api/v1/messages/poll
//
// @Summary  Claim a batch of pending items for a consumer channel
// @Tags     messages
// @Produce  json
// @Param    X-Tenant-ID         header    string  true   "Tenant identifier"
// @Param    X-Consumer-Channel  header    string  true   "Consumer channel tag"
// @Param    count               query     int     false  "Max items to claim (default 1)"
// @Success  200                 {array}   domain.QueueItem
// @Failure  404                 {object}  map[string]string
// @Router   /api/v1/messages/poll [get]
func (h *QueueHandler) Poll(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(HeaderTenantID)
	channel := r.Header.Get(HeaderConsumerChannel)

	count := 1
	if c := r.URL.Query().Get("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			mapError(w, domain.ErrInvalidClaimCount)
			return
		}
		count = n
	}
	if count > h.maxClaimBatch {
		count = h.maxClaimBatch
	}

	items, err := h.svc.Poll(r.Context(), channel, tenantID, count)
	if err != nil {
		mapError(w, err)
		return
	}
	if items == nil {
		items = []domain.QueueItem{}
	}
	respondJSON(w, http.StatusOK, items)
}

type completeRequest struct {
	Result string `json:"result"`
}

// Complete handles POST /api/v1/messages/{id}/done
//
// @Summary  Mark a claimed item as done
// @Tags     messages
// @Accept   json
// @Param    id                  path    int     true  "Item id"
// @Param    X-Tenant-ID         header  string  true  "Tenant identifier"
// @Param    X-Consumer-Channel  header  string  true  "Consumer channel tag"
// @Success  204
// @Failure  404  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /api/v1/messages/{id}/done [post]
func (h *QueueHandler) Complete(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "item id must be an integer")
		return
	}

	var req completeRequest
	if r.Body != nil {
		// An absent or empty body means an empty result, not an error.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	tenantID := r.Header.Get(HeaderTenantID)
	channel := r.Header.Get(HeaderConsumerChannel)

	if err := h.svc.Complete(r.Context(), channel, tenantID, itemID, req.Result); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Depths handles GET /api/v1/queues/depth
//
// @Summary  Per-queue pending/claimed/done census for one tenant
// @Tags     queues
// @Produce  json
// @Param    X-Tenant-ID  header    string  true  "Tenant identifier"
// @Success  200          {object}  map[string]any
// @Router   /api/v1/queues/depth [get]
func (h *QueueHandler) Depths(w http.ResponseWriter, r *http.Request) {
	tenantID := r.Header.Get(HeaderTenantID)

	depths, err := h.svc.Depths(r.Context(), tenantID)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"queues": depths})
}
