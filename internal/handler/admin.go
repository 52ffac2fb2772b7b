package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/repository"
)

// AdminHandler serves the moderation dashboard.  All routes are behind
// RequireRole(admin).
type AdminHandler struct {
	Users  *repository.UserRepo
	Items  *repository.ItemRepo
	Txs    *repository.TransactionRepo
	Ledger *repository.Ledger
}

func NewAdminHandler(users *repository.UserRepo, items *repository.ItemRepo, txs *repository.TransactionRepo, ledger *repository.Ledger) *AdminHandler {
	if users == nil || items == nil || txs == nil || ledger == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Users: users, Items: items, Txs: txs, Ledger: ledger}
}

// Stats handles GET /api/admin/stats: platform-wide aggregates for the
// dashboard header.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	users, err := h.Users.Totals(ctx)
	if err != nil {
		return failServer(c)
	}
	items, err := h.Items.Totals(ctx)
	if err != nil {
		return failServer(c)
	}
	txs, err := h.Txs.Totals(ctx)
	if err != nil {
		return failServer(c)
	}
	return ok(c, http.StatusOK, echo.Map{
		"users":        users,
		"items":        items,
		"transactions": txs,
	})
}

// ListItems handles GET /api/admin/items: the catalog across all
// statuses, for moderation.
func (h *AdminHandler) ListItems(c echo.Context) error {
	f := itemFilterFrom(c)
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

type adminUserPatchReq struct {
	Role         *string `json:"role"`
	IsActive     *bool   `json:"isActive"`
	PointsDelta  *int64  `json:"pointsDelta"`
	AdjustReason string  `json:"adjustReason"`
}

// UpdateUser handles PATCH /api/admin/users/:id: role changes, account
// activation and manual balance adjustments.  Adjustments go through the
// ledger so they leave an audit row.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	adminID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	var req adminUserPatchReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Role == nil && req.IsActive == nil && req.PointsDelta == nil {
		return fail(c, http.StatusBadRequest, "nothing to update")
	}
	if req.Role != nil {
		switch *req.Role {
		case model.RoleUser, model.RoleModerator, model.RoleAdmin:
		default:
			return fail(c, http.StatusBadRequest, "invalid role")
		}
	}

	ctx := c.Request().Context()
	tx, err := h.Users.DB.BeginTx(ctx, nil)
	if err != nil {
		return failServer(c)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	u, err := h.Users.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return failServer(c)
	}

	if req.Role != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", *req.Role, id); err != nil {
			return failServer(c)
		}
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", *req.IsActive, id); err != nil {
			return failServer(c)
		}
		u.IsActive = *req.IsActive
	}
	if req.PointsDelta != nil && *req.PointsDelta != 0 {
		reason := strings.TrimSpace(req.AdjustReason)
		if reason == "" {
			reason = "Manual adjustment"
		}
		entry := model.Transaction{
			Type:          model.TxTypeTransfer,
			Description:   reason,
			RelatedUserID: &adminID,
		}
		if *req.PointsDelta > 0 {
			_, err = h.Ledger.CreditTx(ctx, tx, u, *req.PointsDelta, entry)
		} else {
			_, err = h.Ledger.DebitTx(ctx, tx, u, -*req.PointsDelta, entry)
		}
		if err != nil {
			if err == repository.ErrInsufficientPoints {
				return fail(c, http.StatusBadRequest, "adjustment exceeds user balance")
			}
			return failServer(c)
		}
		u.Points += *req.PointsDelta
	}

	if err := tx.Commit(); err != nil {
		return failServer(c)
	}
	committed = true
	return okMsg(c, http.StatusOK, "user updated", echo.Map{"user": newUserView(u)})
}
