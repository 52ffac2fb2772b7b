package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/queue"
	"github.com/rewear-app/rewear-api/internal/repository"
	queue_publisher "github.com/rewear-app/rewear-api/internal/service"
)

// SwapHandler implements the swap-request lifecycle.  Every transition
// runs in a transaction holding row locks on the request, the target item
// and (when points move) both user balances.
type SwapHandler struct {
	Swaps *repository.SwapRequestRepo
	Items *repository.ItemRepo
	Users *repository.UserRepo
}

func NewSwapHandler(swaps *repository.SwapRequestRepo, items *repository.ItemRepo, users *repository.UserRepo) *SwapHandler {
	if swaps == nil || items == nil || users == nil {
		panic("nil repository passed to NewSwapHandler")
	}
	return &SwapHandler{Swaps: swaps, Items: items, Users: users}
}

type swapCreateReq struct {
	ItemID          uint64  `json:"itemId"`
	OfferedItemID   *uint64 `json:"offeredItemId"`
	SwapType        string  `json:"swapType"`
	PointsOffered   int64   `json:"pointsOffered"`
	PointsRequested int64   `json:"pointsRequested"`
	Message         string  `json:"message"`
	MeetingLocation string  `json:"meetingLocation"`
	MeetingDate     string  `json:"meetingDate"` // RFC3339, optional
}

// validate checks the swap-type-specific field requirements.
func (r *swapCreateReq) validate() string {
	if r.ItemID == 0 {
		return "itemId is required"
	}
	if !model.ValidSwapType(r.SwapType) {
		return "invalid swap type"
	}
	if r.PointsOffered < 0 || r.PointsRequested < 0 {
		return "points amounts cannot be negative"
	}
	switch r.SwapType {
	case model.SwapTypeItemForItem:
		if r.OfferedItemID == nil {
			return "offeredItemId is required for item_for_item swaps"
		}
	case model.SwapTypeItemForPoints:
		if r.PointsOffered <= 0 {
			return "item_for_points swaps need offered points"
		}
	case model.SwapTypePointsForItem:
		if r.PointsRequested <= 0 {
			return "points_for_item swaps need requested points"
		}
	case model.SwapTypeMixed:
		if r.PointsOffered <= 0 && r.PointsRequested <= 0 {
			return "mixed swaps need a points amount"
		}
	}
	return ""
}

// List handles GET /api/swap-requests.  Users see requests they are a
// party to; box=incoming|outgoing narrows to one side; admins may pass
// all=true.
func (h *SwapHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	f := repository.SwapFilter{
		UserID: userID,
		Box:    c.QueryParam("box"),
		Status: c.QueryParam("status"),
		ItemID: uint64(queryInt(c, "itemId", 0)),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	if c.QueryParam("all") == "true" && currentRole(c) == model.RoleAdmin {
		f.UserID = 0
	}
	swaps, total, err := h.Swaps.List(c.Request().Context(), f)
	if err != nil {
		return failServer(c)
	}
	views := make([]swapView, 0, len(swaps))
	for _, s := range swaps {
		views = append(views, newSwapDetailView(s))
	}
	page, limit := normPage(f.Page, f.Limit, 20)
	return ok(c, http.StatusOK, echo.Map{
		"swapRequests": views,
		"pagination":   newPagination(page, limit, total),
	})
}

// Get handles GET /api/swap-requests/:id.  Only the two parties and
// admins may view a request.
func (h *SwapHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid swap request id")
	}
	ctx := c.Request().Context()
	s, err := h.Swaps.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "swap request not found")
		}
		return failServer(c)
	}
	it, err := h.Items.GetByID(ctx, s.ItemID)
	if err != nil {
		return failServer(c)
	}
	if userID != s.RequesterID && userID != it.UserID && currentRole(c) != model.RoleAdmin {
		return fail(c, http.StatusForbidden, "not a party to this swap request")
	}
	return ok(c, http.StatusOK, echo.Map{
		"swapRequest": newSwapView(s),
		"item":        newItemView(it),
	})
}

// Create handles POST /api/swap-requests.  The target item is parked in
// pending_swap while the request is open; the item row lock keeps the
// availability check, the duplicate check and the insert consistent.
func (h *SwapHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req swapCreateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	var meetingDate *time.Time
	if req.MeetingDate != "" {
		t, err := time.Parse(time.RFC3339, req.MeetingDate)
		if err != nil {
			return fail(c, http.StatusBadRequest, "meetingDate must be RFC3339")
		}
		meetingDate = &t
	}

	ctx := c.Request().Context()
	tx, err := h.Swaps.DB().BeginTx(ctx, nil)
	if err != nil {
		return failServer(c)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	it, err := h.Items.GetForUpdateTx(ctx, tx, req.ItemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "item not found")
		}
		return failServer(c)
	}
	if it.UserID == userID {
		return fail(c, http.StatusBadRequest, "cannot request a swap for your own item")
	}
	if it.Status != model.ItemStatusAvailable {
		return fail(c, http.StatusBadRequest, "item is not available")
	}

	if req.OfferedItemID != nil {
		offered, err := h.Items.GetForUpdateTx(ctx, tx, *req.OfferedItemID)
		if err != nil {
			if err == sql.ErrNoRows {
				return fail(c, http.StatusNotFound, "offered item not found")
			}
			return failServer(c)
		}
		if offered.UserID != userID {
			return fail(c, http.StatusForbidden, "offered item is not yours")
		}
		if offered.Status != model.ItemStatusAvailable {
			return fail(c, http.StatusBadRequest, "offered item is not available")
		}
	}

	if req.PointsOffered > 0 {
		requester, err := h.Users.GetForUpdateTx(ctx, tx, userID)
		if err != nil {
			return failServer(c)
		}
		if requester.Points < req.PointsOffered {
			return fail(c, http.StatusBadRequest, "insufficient points")
		}
	}

	dup, err := h.Swaps.HasPendingTx(ctx, tx, userID, req.ItemID)
	if err != nil {
		return failServer(c)
	}
	if dup {
		return fail(c, http.StatusConflict, "you already have a pending request for this item")
	}

	s := model.SwapRequest{
		RequesterID:     userID,
		ItemID:          req.ItemID,
		OfferedItemID:   req.OfferedItemID,
		SwapType:        req.SwapType,
		PointsOffered:   req.PointsOffered,
		PointsRequested: req.PointsRequested,
		Message:         strings.TrimSpace(req.Message),
		MeetingLocation: strings.TrimSpace(req.MeetingLocation),
		MeetingDate:     meetingDate,
	}
	if err := h.Swaps.CreateTx(ctx, tx, &s); err != nil {
		return failServer(c)
	}
	if err := h.Items.SetStatusTx(ctx, tx, it.ID, model.ItemStatusPendingSwap); err != nil {
		return failServer(c)
	}
	if err := tx.Commit(); err != nil {
		return failServer(c)
	}
	committed = true
	return okMsg(c, http.StatusCreated, "swap request created", echo.Map{"swapRequest": newSwapView(s)})
}

type swapActReq struct {
	Action  string `json:"action"`
	Message string `json:"message"`
	Rating  *int   `json:"rating"`
	Review  string `json:"review"`
}

// Act handles PUT /api/swap-requests/:id.  The action drives the state
// machine: owners approve or reject, requesters cancel, either party
// completes an approved swap.
func (h *SwapHandler) Act(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid swap request id")
	}
	var req swapActReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	tx, err := h.Swaps.DB().BeginTx(ctx, nil)
	if err != nil {
		return failServer(c)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	s, err := h.Swaps.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "swap request not found")
		}
		return failServer(c)
	}
	it, err := h.Items.GetForUpdateTx(ctx, tx, s.ItemID)
	if err != nil {
		return failServer(c)
	}
	ownerID := it.UserID

	next, legal := model.NextStatus(s.Status, req.Action)
	if !legal {
		return fail(c, http.StatusBadRequest, "invalid action for current state")
	}
	switch req.Action {
	case model.SwapActionApprove, model.SwapActionReject:
		if userID != ownerID {
			return fail(c, http.StatusForbidden, "only the item owner can do that")
		}
	case model.SwapActionCancel:
		if userID != s.RequesterID {
			return fail(c, http.StatusForbidden, "only the requester can cancel")
		}
	case model.SwapActionComplete:
		if userID != ownerID && userID != s.RequesterID {
			return fail(c, http.StatusForbidden, "not a party to this swap request")
		}
	}
	side := "owner"
	if userID == s.RequesterID {
		side = "requester"
	}

	switch req.Action {
	case model.SwapActionApprove:
		if err := h.approveTx(ctx, tx, s, it, next, strings.TrimSpace(req.Message)); err != nil {
			return failServer(c)
		}
	case model.SwapActionReject, model.SwapActionCancel:
		if err := h.Swaps.SetStatusTx(ctx, tx, s.ID, next, side, strings.TrimSpace(req.Message)); err != nil {
			return failServer(c)
		}
		if err := h.Items.SetStatusTx(ctx, tx, it.ID, model.ItemStatusAvailable); err != nil {
			return failServer(c)
		}
	case model.SwapActionComplete:
		if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
			return fail(c, http.StatusBadRequest, "rating must be between 1 and 5")
		}
		if err := h.Swaps.CompleteTx(ctx, tx, s.ID, side, strings.TrimSpace(req.Message), req.Rating, strings.TrimSpace(req.Review)); err != nil {
			return failServer(c)
		}
		// The rating lands on the acting user's own record.
		if req.Rating != nil {
			ru, err := h.Users.GetForUpdateTx(ctx, tx, userID)
			if err != nil {
				return failServer(c)
			}
			newRating := model.NextRating(ru.Stats.Rating, ru.Stats.Reviews, *req.Rating)
			if err := h.Users.SetRatingTx(ctx, tx, userID, newRating); err != nil {
				return failServer(c)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return failServer(c)
	}
	committed = true

	if req.Action == model.SwapActionComplete {
		_ = queue_publisher.PublishSwapCompleted(ctx, queue.SwapCompletedEvent{
			SwapRequestID:   s.ID,
			ItemID:          it.ID,
			ItemTitle:       it.Title,
			RequesterID:     s.RequesterID,
			OwnerID:         ownerID,
			SwapType:        s.SwapType,
			PointsOffered:   s.PointsOffered,
			PointsRequested: s.PointsRequested,
			CompletedAt:     time.Now().UTC().Format(time.RFC3339),
		})
	}

	updated, err := h.Swaps.GetByID(ctx, id)
	if err != nil {
		return failServer(c)
	}
	return okMsg(c, http.StatusOK, "swap request "+updated.Status, echo.Map{"swapRequest": newSwapView(updated)})
}

// approveTx applies the approve transition: both items leave the catalog,
// any points move directly between the two balances and both parties'
// swap counters advance.  The point transfer bypasses the ledger, so no
// transaction rows are written for it.
func (h *SwapHandler) approveTx(ctx context.Context, tx *sql.Tx, s model.SwapRequest, it model.Item, next, message string) error {
	requester, owner, err := lockUserPair(ctx, tx, h.Users, s.RequesterID, it.UserID)
	if err != nil {
		return err
	}
	if s.PointsOffered > 0 {
		if err := h.Users.AddPointsTx(ctx, tx, requester.ID, -s.PointsOffered); err != nil {
			return err
		}
		if err := h.Users.AddPointsTx(ctx, tx, owner.ID, s.PointsOffered); err != nil {
			return err
		}
	}
	if s.PointsRequested > 0 {
		if err := h.Users.AddPointsTx(ctx, tx, owner.ID, -s.PointsRequested); err != nil {
			return err
		}
		if err := h.Users.AddPointsTx(ctx, tx, requester.ID, s.PointsRequested); err != nil {
			return err
		}
	}
	if err := h.Users.AddSwapStatsTx(ctx, tx, requester.ID, 0, 1); err != nil {
		return err
	}
	if err := h.Users.AddSwapStatsTx(ctx, tx, owner.ID, 0, 1); err != nil {
		return err
	}
	if err := h.Items.SetStatusTx(ctx, tx, it.ID, model.ItemStatusSwapped); err != nil {
		return err
	}
	if s.OfferedItemID != nil {
		if err := h.Items.SetStatusTx(ctx, tx, *s.OfferedItemID, model.ItemStatusSwapped); err != nil {
			return err
		}
	}
	return h.Swaps.SetStatusTx(ctx, tx, s.ID, next, "owner", message)
}

// Delete handles DELETE /api/swap-requests/:id.  Only pending and
// cancelled requests may be removed; deleting a pending request frees
// the target item.
func (h *SwapHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid swap request id")
	}

	ctx := c.Request().Context()
	tx, err := h.Swaps.DB().BeginTx(ctx, nil)
	if err != nil {
		return failServer(c)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	s, err := h.Swaps.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "swap request not found")
		}
		return failServer(c)
	}
	if s.RequesterID != userID && currentRole(c) != model.RoleAdmin {
		return fail(c, http.StatusForbidden, "only the requester can delete a request")
	}
	if s.Status != model.SwapStatusPending && s.Status != model.SwapStatusCancelled {
		return fail(c, http.StatusBadRequest, "only pending or cancelled requests can be deleted")
	}
	if s.Status == model.SwapStatusPending {
		if err := h.Items.SetStatusTx(ctx, tx, s.ItemID, model.ItemStatusAvailable); err != nil {
			return failServer(c)
		}
	}
	if err := h.Swaps.DeleteTx(ctx, tx, s.ID); err != nil {
		return failServer(c)
	}
	if err := tx.Commit(); err != nil {
		return failServer(c)
	}
	committed = true
	return okMsg(c, http.StatusOK, "swap request deleted", nil)
}
