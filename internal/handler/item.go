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

// ItemHandler groups repositories for listing, browsing, moderating and
// redeeming catalog items.  Redemption runs inside a transaction with row
// locks on the item and both balances so two concurrent buyers cannot
// both pass the availability check.
type ItemHandler struct {
	Items  *repository.ItemRepo
	Users  *repository.UserRepo
	Swaps  *repository.SwapRequestRepo
	Ledger *repository.Ledger
}

func NewItemHandler(items *repository.ItemRepo, users *repository.UserRepo, swaps *repository.SwapRequestRepo, ledger *repository.Ledger) *ItemHandler {
	if items == nil || users == nil || swaps == nil || ledger == nil {
		panic("nil repository passed to NewItemHandler")
	}
	return &ItemHandler{Items: items, Users: users, Swaps: swaps, Ledger: ledger}
}

type itemReq struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Subcategory string         `json:"subcategory"`
	Brand       string         `json:"brand"`
	Type        string         `json:"type"`
	Size        string         `json:"size"`
	Color       string         `json:"color"`
	Condition   string         `json:"condition"`
	Tags        []string       `json:"tags"`
	Images      []string       `json:"images"`
	Points      int64          `json:"points"`
	Location    model.Location `json:"location"`
}

func (r *itemReq) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	switch {
	case r.Title == "":
		return "title is required"
	case r.Description == "":
		return "description is required"
	case !model.ValidCategory(r.Category):
		return "invalid category"
	case !model.ValidCondition(r.Condition):
		return "invalid condition"
	case len(r.Images) == 0:
		return "at least one image is required"
	case r.Points < model.MinItemPoints || r.Points > model.MaxItemPoints:
		return "points must be between 1 and 10000"
	}
	return ""
}

// itemFilterFrom builds a repository filter from list query parameters.
func itemFilterFrom(c echo.Context) repository.ItemFilter {
	return repository.ItemFilter{
		Status:    c.QueryParam("status"),
		Category:  c.QueryParam("category"),
		Condition: c.QueryParam("condition"),
		Search:    c.QueryParam("search"),
		UserID:    uint64(queryInt(c, "userId", 0)),
		Featured:  c.QueryParam("featured") == "true",
		MinPoints: int64(queryInt(c, "minPoints", 0)),
		MaxPoints: int64(queryInt(c, "maxPoints", 0)),
		SortBy:    c.QueryParam("sort"),
		SortDesc:  c.QueryParam("order") != "asc",
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 12),
	}
}

// List handles GET /api/items.  Defaults to available items; pass an
// explicit status (or "all") to widen.
func (h *ItemHandler) List(c echo.Context) error {
	f := itemFilterFrom(c)
	if f.Status == "" {
		f.Status = model.ItemStatusAvailable
	}
	if f.Status == "all" {
		f.Status = ""
	}
	items, total, err := h.Items.List(c.Request().Context(), f)
	if err != nil {
		return failServer(c)
	}
	page, limit := normPage(f.Page, f.Limit, 12)
	return ok(c, http.StatusOK, echo.Map{
		"items":      newItemDetailViews(items),
		"pagination": newPagination(page, limit, total),
	})
}

// Browse handles GET /api/items/browse: the public catalog view, always
// restricted to available listings.
func (h *ItemHandler) Browse(c echo.Context) error {
	f := itemFilterFrom(c)
	f.Status = model.ItemStatusAvailable
	items, total, err := h.Items.List(c.Request().Context(), f)
	if err != nil {
		return failServer(c)
	}
	page, limit := normPage(f.Page, f.Limit, 12)
	return ok(c, http.StatusOK, echo.Map{
		"items":      newItemDetailViews(items),
		"pagination": newPagination(page, limit, total),
	})
}

// Get handles GET /api/items/:id.  Returns the item with owner info and a
// handful of related listings; the view counter bump is best effort.
func (h *ItemHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid item id")
	}
	ctx := c.Request().Context()
	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "item not found")
		}
		return failServer(c)
	}
	_ = h.Items.AddViews(ctx, id)
	it.Views++

	owner, err := h.Users.GetByID(ctx, it.UserID)
	if err != nil {
		return failServer(c)
	}
	related, err := h.Items.Related(ctx, it.Category, it.ID, it.UserID, 4)
	if err != nil {
		return failServer(c)
	}
	v := newItemView(it)
	v.Owner = &itemOwnerView{
		Name: owner.Name, Email: owner.Email, Avatar: owner.Avatar, Rating: owner.Stats.Rating,
	}
	return ok(c, http.StatusOK, echo.Map{
		"item":    v,
		"related": newItemDetailViews(related),
	})
}

// Create handles POST /api/items.
func (h *ItemHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	it := model.Item{
		UserID: userID, Title: req.Title, Description: req.Description,
		Category: req.Category, Subcategory: req.Subcategory, Brand: req.Brand,
		Type: req.Type, Size: req.Size, Color: req.Color, Condition: req.Condition,
		Tags: req.Tags, Images: req.Images, Points: req.Points, Location: req.Location,
	}
	if err := h.Items.Create(ctx, &it); err != nil {
		return failServer(c)
	}
	_ = h.Users.AddItemsListed(ctx, userID, 1)
	return okMsg(c, http.StatusCreated, "item listed", echo.Map{"item": newItemView(it)})
}

// Update handles PUT /api/items/:id.  Only the owner (or an admin) may
// edit, and swapped items are immutable.
func (h *ItemHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid item id")
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}

	ctx := c.Request().Context()
	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "item not found")
		}
		return failServer(c)
	}
	if it.UserID != userID && currentRole(c) != model.RoleAdmin {
		return fail(c, http.StatusForbidden, "not your item")
	}
	if it.Status == model.ItemStatusSwapped {
		return fail(c, http.StatusBadRequest, "swapped items cannot be edited")
	}

	it.Title, it.Description = req.Title, req.Description
	it.Category, it.Subcategory, it.Brand = req.Category, req.Subcategory, req.Brand
	it.Type, it.Size, it.Color, it.Condition = req.Type, req.Size, req.Color, req.Condition
	it.Tags, it.Images, it.Points, it.Location = req.Tags, req.Images, req.Points, req.Location
	if err := h.Items.Update(ctx, it); err != nil {
		return failServer(c)
	}
	return okMsg(c, http.StatusOK, "item updated", echo.Map{"item": newItemView(it)})
}

type itemPatchReq struct {
	Action   string  `json:"action"`   // "like"
	Featured *bool   `json:"featured"` // admin only
	Status   *string `json:"status"`   // admin only
}

// Patch handles PATCH /api/items/:id.  Regular users can like an item;
// admins can pin it as featured or force a status (moderation).
func (h *ItemHandler) Patch(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid item id")
	}
	var req itemPatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "item not found")
		}
		return failServer(c)
	}

	if req.Action == "like" {
		if err := h.Items.AddLike(ctx, id); err != nil {
			return failServer(c)
		}
		return okMsg(c, http.StatusOK, "item liked", echo.Map{"likes": it.Likes + 1})
	}

	if req.Featured == nil && req.Status == nil {
		return fail(c, http.StatusBadRequest, "nothing to update")
	}
	if currentRole(c) != model.RoleAdmin {
		return fail(c, http.StatusForbidden, "admin only")
	}
	if req.Featured != nil {
		if err := h.Items.SetFeatured(ctx, id, *req.Featured); err != nil {
			return failServer(c)
		}
		it.Featured = *req.Featured
	}
	if req.Status != nil {
		if !model.ValidItemStatus(*req.Status) {
			return fail(c, http.StatusBadRequest, "invalid status")
		}
		tx, err := h.Items.DB().BeginTx(ctx, nil)
		if err != nil {
			return failServer(c)
		}
		committed := false
		defer func() {
			if !committed {
				_ = tx.Rollback()
			}
		}()
		if err := h.Items.SetStatusTx(ctx, tx, id, *req.Status); err != nil {
			return failServer(c)
		}
		if err := tx.Commit(); err != nil {
			return failServer(c)
		}
		committed = true
		it.Status = *req.Status
	}
	return okMsg(c, http.StatusOK, "item updated", echo.Map{"item": newItemView(it)})
}

// Delete handles DELETE /api/items/:id.  Deletion is blocked while the
// item is referenced by pending swap requests.
func (h *ItemHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid item id")
	}
	ctx := c.Request().Context()
	it, err := h.Items.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "item not found")
		}
		return failServer(c)
	}
	if it.UserID != userID && currentRole(c) != model.RoleAdmin {
		return fail(c, http.StatusForbidden, "not your item")
	}
	pending, err := h.Swaps.CountPendingByItem(ctx, id)
	if err != nil {
		return failServer(c)
	}
	if pending > 0 {
		return fail(c, http.StatusConflict, "item has pending swap requests")
	}
	if err := h.Items.Delete(ctx, id); err != nil {
		return failServer(c)
	}
	_ = h.Users.AddItemsListed(ctx, it.UserID, -1)
	return okMsg(c, http.StatusOK, "item deleted", nil)
}

type redeemReq struct {
	ItemID uint64 `json:"itemId"`
}

// Redeem handles POST /api/items/redeem.  The buyer pays the full points
// price, the seller receives 90% of it, both swap counters advance and
// the item leaves the catalog.  All writes share one transaction; the
// item row lock serializes concurrent redemption attempts.
func (h *ItemHandler) Redeem(c echo.Context) error {
	buyerID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req redeemReq
	if err := c.Bind(&req); err != nil || req.ItemID == 0 {
		return fail(c, http.StatusBadRequest, "itemId is required")
	}

	ctx := c.Request().Context()
	tx, err := h.Items.DB().BeginTx(ctx, nil)
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
	if it.Status != model.ItemStatusAvailable {
		return fail(c, http.StatusBadRequest, "item is not available")
	}
	if it.UserID == buyerID {
		return fail(c, http.StatusBadRequest, "cannot redeem your own item")
	}

	buyer, seller, err := lockUserPair(ctx, tx, h.Users, buyerID, it.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return failServer(c)
	}

	price := it.Points
	earnings := price * 9 / 10 // 10% platform commission, silently absorbed

	itemID := it.ID
	if _, err := h.Ledger.DebitTx(ctx, tx, buyer, price, model.Transaction{
		Type:          model.TxTypeDeduction,
		Description:   "Redeemed item: " + it.Title,
		ItemID:        &itemID,
		RelatedUserID: &seller.ID,
	}); err != nil {
		if err == repository.ErrInsufficientPoints {
			return fail(c, http.StatusBadRequest, "insufficient points")
		}
		return failServer(c)
	}
	if _, err := h.Ledger.CreditTx(ctx, tx, seller, earnings, model.Transaction{
		Type:          model.TxTypeBonus,
		Description:   "Item sold: " + it.Title,
		ItemID:        &itemID,
		RelatedUserID: &buyer.ID,
	}); err != nil {
		return failServer(c)
	}

	if err := h.Users.AddSwapStatsTx(ctx, tx, buyer.ID, 1, 1); err != nil {
		return failServer(c)
	}
	if err := h.Users.AddSwapStatsTx(ctx, tx, seller.ID, 1, 1); err != nil {
		return failServer(c)
	}

	now := time.Now().UTC()
	if err := h.Items.MarkRedeemedTx(ctx, tx, it.ID, buyer.ID, now); err != nil {
		return failServer(c)
	}
	if err := tx.Commit(); err != nil {
		return failServer(c)
	}
	committed = true

	_ = queue_publisher.PublishItemRedeemed(ctx, queue.ItemRedeemedEvent{
		ItemID:         it.ID,
		ItemTitle:      it.Title,
		BuyerID:        buyer.ID,
		BuyerName:      buyer.Name,
		SellerID:       seller.ID,
		SellerName:     seller.Name,
		PointsSpent:    price,
		SellerEarnings: earnings,
		RedeemedAt:     now.Format(time.RFC3339),
	})

	it.Status = model.ItemStatusSwapped
	it.BuyerID = &buyer.ID
	it.SwappedAt = &now
	buyer.Points -= price
	seller.Points += earnings
	return okMsg(c, http.StatusOK, "item redeemed", echo.Map{
		"item":   newItemView(it),
		"buyer":  newUserView(buyer),
		"seller": newUserView(seller),
	})
}

// lockUserPair locks two user rows in ascending ID order so concurrent
// flows touching the same pair cannot deadlock.
func lockUserPair(ctx context.Context, tx *sql.Tx, users *repository.UserRepo, aID, bID uint64) (a, b model.User, err error) {
	first, second := aID, bID
	if second < first {
		first, second = second, first
	}
	u1, err := users.GetForUpdateTx(ctx, tx, first)
	if err != nil {
		return a, b, err
	}
	u2, err := users.GetForUpdateTx(ctx, tx, second)
	if err != nil {
		return a, b, err
	}
	if u1.ID == aID {
		return u1, u2, nil
	}
	return u2, u1, nil
}
