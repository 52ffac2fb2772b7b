package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/repository"
)

func newSwapHandlerForTest(t *testing.T) (*SwapHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	users := repository.NewUserRepo(db)
	items := repository.NewItemRepo(db)
	swaps := repository.NewSwapRequestRepo(db)
	h := NewSwapHandler(swaps, items, users)
	return h, mock, func() { db.Close() }
}

var swapCols = []string{
	"id", "requester_id", "item_id", "offered_item_id", "swap_type",
	"points_offered", "points_requested", "status", "message",
	"requester_message", "owner_message", "meeting_location", "meeting_date",
	"requester_rating", "owner_rating", "requester_review", "owner_review",
	"created_at", "updated_at",
}

func swapRow(id, requesterID, itemID uint64, pointsOffered int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(swapCols).AddRow(
		id, requesterID, itemID, nil, model.SwapTypeItemForPoints,
		pointsOffered, 0, status, "interested!",
		"", "", "", nil, nil, nil, "", "", now, now)
}

func swapActCtx(e *echo.Echo, id string, body string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := jsonCtx(e, http.MethodPut, "/api/swap-requests/"+id, body)
	c.SetPath("/api/swap-requests/:id")
	c.SetParamNames("id")
	c.SetParamValues(id)
	c.Set("user_id", userID)
	c.Set("role", model.RoleUser)
	return c, rec
}

func TestSwapApproveTransfersPoints(t *testing.T) {
	h, mock, done := newSwapHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM swap_requests WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(swapRow(5, 1, 10, 50, model.SwapStatusPending))
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 100, model.ItemStatusPendingSwap))
	// balances lock in ascending id order, then move by direct deltas
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(1)).
		WillReturnRows(testUserRow(1, "requester", 80))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(2)).
		WillReturnRows(testUserRow(2, "owner", 20))
	mock.ExpectExec("UPDATE users SET points=points").
		WithArgs(int64(-50), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET points=points").
		WithArgs(int64(50), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET items_swapped=").
		WithArgs(0, 1, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET items_swapped=").
		WithArgs(0, 1, uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE items SET status=").
		WithArgs(model.ItemStatusSwapped, uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE swap_requests SET status=").
		WithArgs(model.SwapStatusApproved, "deal", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT (.+) FROM swap_requests WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(swapRow(5, 1, 10, 50, model.SwapStatusApproved))

	e := echo.New()
	c, rec := swapActCtx(e, "5", `{"action":"approve","message":"deal"}`, 2)

	require.NoError(t, h.Act(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.SwapStatusApproved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapCompleteOnPendingFails(t *testing.T) {
	h, mock, done := newSwapHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM swap_requests WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(swapRow(5, 1, 10, 50, model.SwapStatusPending))
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 100, model.ItemStatusPendingSwap))
	mock.ExpectRollback()

	e := echo.New()
	c, rec := swapActCtx(e, "5", `{"action":"complete","rating":5}`, 1)

	require.NoError(t, h.Act(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid action")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapApproveByNonOwnerForbidden(t *testing.T) {
	h, mock, done := newSwapHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM swap_requests WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(swapRow(5, 1, 10, 50, model.SwapStatusPending))
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 100, model.ItemStatusPendingSwap))
	mock.ExpectRollback()

	e := echo.New()
	// the requester tries to approve their own request
	c, rec := swapActCtx(e, "5", `{"action":"approve"}`, 1)

	require.NoError(t, h.Act(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapCreateDuplicatePending(t *testing.T) {
	h, mock, done := newSwapHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 100, model.ItemStatusAvailable))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(1)).
		WillReturnRows(testUserRow(1, "requester", 80))
	mock.ExpectQuery("SELECT COUNT(.+) FROM swap_requests").
		WithArgs(uint64(1), uint64(10), model.SwapStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectRollback()

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/swap-requests",
		`{"itemId":10,"swapType":"item_for_points","pointsOffered":50}`)
	c.Set("user_id", uint64(1))
	c.Set("role", model.RoleUser)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "pending request")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapCreatePointsForItem(t *testing.T) {
	h, mock, done := newSwapHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 100, model.ItemStatusAvailable))
	// no points offered by the requester, so no balance lock
	mock.ExpectQuery("SELECT COUNT(.+) FROM swap_requests").
		WithArgs(uint64(1), uint64(10), model.SwapStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec("INSERT INTO swap_requests").
		WithArgs(uint64(1), uint64(10), nil, model.SwapTypePointsForItem,
			int64(0), int64(40), model.SwapStatusPending, "", "", nil).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("UPDATE items SET status=").
		WithArgs(model.ItemStatusPendingSwap, uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/swap-requests",
		`{"itemId":10,"swapType":"points_for_item","pointsRequested":40}`)
	c.Set("user_id", uint64(1))
	c.Set("role", model.RoleUser)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "swap request created")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapCompleteRecordsActorRating(t *testing.T) {
	h, mock, done := newSwapHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM swap_requests WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(5)).
		WillReturnRows(swapRow(5, 1, 10, 50, model.SwapStatusApproved))
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 100, model.ItemStatusSwapped))
	// the owner acts, so the owner columns take the message and review
	mock.ExpectExec("UPDATE swap_requests SET status=(.+)owner_message=(.+)owner_rating=(.+)owner_review=").
		WithArgs(model.SwapStatusCompleted, "smooth handoff", 5, "great to trade with", uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// and the rating lands on the owner's own record
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(2)).
		WillReturnRows(testUserRow(2, "owner", 70))
	mock.ExpectExec("UPDATE users SET rating=").
		WithArgs(5.0, uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT (.+) FROM swap_requests WHERE id=").
		WithArgs(uint64(5)).
		WillReturnRows(swapRow(5, 1, 10, 50, model.SwapStatusCompleted))

	e := echo.New()
	c, rec := swapActCtx(e, "5",
		`{"action":"complete","message":"smooth handoff","rating":5,"review":"great to trade with"}`, 2)

	require.NoError(t, h.Act(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.SwapStatusCompleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapCreateValidation(t *testing.T) {
	h, _, done := newSwapHandlerForTest(t)
	defer done()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing item", `{"swapType":"item_for_points","pointsOffered":10}`, "itemId is required"},
		{"bad type", `{"itemId":10,"swapType":"barter"}`, "invalid swap type"},
		{"item_for_points without points", `{"itemId":10,"swapType":"item_for_points"}`, "offered points"},
		{"points_for_item without points", `{"itemId":10,"swapType":"points_for_item"}`, "requested points"},
		{"points_for_item with only offered points", `{"itemId":10,"swapType":"points_for_item","pointsOffered":50}`, "requested points"},
		{"item_for_item without item", `{"itemId":10,"swapType":"item_for_item"}`, "offeredItemId is required"},
		{"mixed without points", `{"itemId":10,"swapType":"mixed","offeredItemId":11}`, "points amount"},
		{"negative points", `{"itemId":10,"swapType":"points_for_item","pointsOffered":-5}`, "cannot be negative"},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := jsonCtx(e, http.MethodPost, "/api/swap-requests", tc.body)
			c.Set("user_id", uint64(1))
			c.Set("role", model.RoleUser)
			require.NoError(t, h.Create(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}
