package handler

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/repository"
)

// CreditHandler sells point packages through a simulated payment gateway
// and exposes the ledger history.
type CreditHandler struct {
	Users    *repository.UserRepo
	Txs      *repository.TransactionRepo
	Payments *repository.PaymentRepo
	Ledger   *repository.Ledger
}

func NewCreditHandler(users *repository.UserRepo, txs *repository.TransactionRepo, payments *repository.PaymentRepo, ledger *repository.Ledger) *CreditHandler {
	if users == nil || txs == nil || payments == nil || ledger == nil {
		panic("nil repository passed to NewCreditHandler")
	}
	return &CreditHandler{Users: users, Txs: txs, Payments: payments, Ledger: ledger}
}

// creditPackage is a fixed bundle of points for a fiat price.  Bonus
// points are granted on top of the base amount.
type creditPackage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Points     int64  `json:"points"`
	Bonus      int64  `json:"bonus"`
	PriceCents int64  `json:"priceCents"`
	Popular    bool   `json:"popular"`
}

var creditPackages = []creditPackage{
	{ID: "starter", Name: "Starter", Points: 100, Bonus: 0, PriceCents: 499},
	{ID: "basic", Name: "Basic", Points: 250, Bonus: 25, PriceCents: 999},
	{ID: "popular", Name: "Popular", Points: 500, Bonus: 75, PriceCents: 1799, Popular: true},
	{ID: "premium", Name: "Premium", Points: 1000, Bonus: 200, PriceCents: 2999},
	{ID: "ultimate", Name: "Ultimate", Points: 2500, Bonus: 625, PriceCents: 5999},
}

func findPackage(id string) (creditPackage, bool) {
	for _, p := range creditPackages {
		if p.ID == id {
			return p, true
		}
	}
	return creditPackage{}, false
}

// Packages handles GET /api/credits/purchase: the package catalog plus
// the caller's recent payments.
func (h *CreditHandler) Packages(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	payments, err := h.Payments.ListByUser(c.Request().Context(), userID, 10)
	if err != nil {
		return failServer(c)
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, newPaymentView(p))
	}
	return ok(c, http.StatusOK, echo.Map{
		"packages": creditPackages,
		"payments": views,
	})
}

type billingReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type purchaseReq struct {
	PackageID     string     `json:"packageId"`
	PaymentMethod string     `json:"paymentMethod"`
	Billing       billingReq `json:"billing"`
}

// Purchase handles POST /api/credits/purchase.  The gateway call is
// simulated and always succeeds; the payment row, the points credit and
// its ledger entry commit together.
func (h *CreditHandler) Purchase(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	pkg, found := findPackage(req.PackageID)
	if !found {
		return fail(c, http.StatusBadRequest, "unknown package")
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = "card"
	}

	gatewayID, err := simulatedGatewayID()
	if err != nil {
		return failServer(c)
	}
	totalPoints := pkg.Points + pkg.Bonus

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

	u, err := h.Users.GetForUpdateTx(ctx, tx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return failServer(c)
	}

	p := model.Payment{
		UserID:           userID,
		PackageID:        pkg.ID,
		AmountCents:      pkg.PriceCents,
		PointsToReceive:  totalPoints,
		PaymentMethod:    method,
		Gateway:          "simulated",
		GatewayPaymentID: gatewayID,
		Status:           model.PaymentStatusCompleted,
		BillingFirstName: strings.TrimSpace(req.Billing.FirstName),
		BillingLastName:  strings.TrimSpace(req.Billing.LastName),
		BillingEmail:     strings.ToLower(strings.TrimSpace(req.Billing.Email)),
		BillingPhone:     strings.TrimSpace(req.Billing.Phone),
	}
	if err := h.Payments.CreateTx(ctx, tx, &p); err != nil {
		return failServer(c)
	}

	entry, err := h.Ledger.CreditTx(ctx, tx, u, totalPoints, model.Transaction{
		Type:          model.TxTypePurchase,
		Description:   "Purchased " + pkg.Name + " package",
		PaymentMethod: method,
		PaymentID:     gatewayID,
	})
	if err != nil {
		return failServer(c)
	}
	if err := tx.Commit(); err != nil {
		return failServer(c)
	}
	committed = true

	return okMsg(c, http.StatusOK, "purchase completed", echo.Map{
		"payment":     newPaymentView(p),
		"transaction": newTxView(entry),
		"balance":     entry.BalanceAfter,
	})
}

// Transactions handles GET /api/credits/transactions: the caller's ledger
// history with aggregate stats.
func (h *CreditHandler) Transactions(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	f := repository.TxFilter{
		Type:   c.QueryParam("type"),
		Status: c.QueryParam("status"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	ctx := c.Request().Context()
	txs, total, err := h.Txs.ListByUser(ctx, userID, f)
	if err != nil {
		return failServer(c)
	}
	stats, err := h.Txs.UserStats(ctx, userID)
	if err != nil {
		return failServer(c)
	}
	page, limit := normPage(f.Page, f.Limit, 20)
	return ok(c, http.StatusOK, echo.Map{
		"transactions": newTxViews(txs),
		"stats":        stats,
		"pagination":   newPagination(page, limit, total),
	})
}

// simulatedGatewayID mimics an external payment reference.
func simulatedGatewayID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "sim_" + hex.EncodeToString(buf), nil
}
