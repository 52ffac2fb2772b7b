package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/repository"
)

// newItemHandlerForTest wires an ItemHandler over a mocked database.
func newItemHandlerForTest(t *testing.T) (*ItemHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	users := repository.NewUserRepo(db)
	items := repository.NewItemRepo(db)
	swaps := repository.NewSwapRequestRepo(db)
	txs := repository.NewTransactionRepo(db)
	h := NewItemHandler(items, users, swaps, repository.NewLedger(users, txs))
	return h, mock, func() { db.Close() }
}

func jsonCtx(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

var itemCols = []string{
	"id", "user_id", "title", "description", "category", "subcategory", "brand",
	"item_type", "size", "color", "item_condition", "tags", "images", "points",
	"status", "city", "state", "country", "views", "likes", "featured",
	"buyer_id", "swapped_at", "created_at", "updated_at",
}

func itemRow(id, ownerID uint64, points int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(itemCols).AddRow(
		id, ownerID, "Denim jacket", "Barely worn", "clothing", "", "Levis",
		"jacket", "M", "blue", model.ConditionLikeNew,
		[]byte(`["denim"]`), []byte(`["img1.jpg"]`), points,
		status, "Lisbon", "", "PT", 4, 1, false,
		nil, nil, now, now)
}

var userCols = []string{
	"id", "name", "email", "password_hash", "avatar", "bio", "points", "role",
	"city", "state", "country", "items_listed", "items_swapped", "total_swaps",
	"rating", "reviews", "is_active", "last_active", "created_at", "updated_at",
}

func testUserRow(id uint64, name string, points int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userCols).AddRow(
		id, name, name+"@example.com", "$2a$04$hash", "", "", points, model.RoleUser,
		"", "", "", 1, 0, 0, 0.0, 0, true, now, now, now)
}

func TestRedeemHappyPath(t *testing.T) {
	h, mock, done := newItemHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 100, model.ItemStatusAvailable))
	// user locks happen in ascending id order
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(1)).
		WillReturnRows(testUserRow(1, "buyer", 150))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(2)).
		WillReturnRows(testUserRow(2, "seller", 10))
	// buyer pays full price
	mock.ExpectExec("UPDATE users SET points=").
		WithArgs(int64(50), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(41, 1))
	// seller receives 90
	mock.ExpectExec("UPDATE users SET points=").
		WithArgs(int64(100), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transactions").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("UPDATE users SET items_swapped=").
		WithArgs(1, 1, uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET items_swapped=").
		WithArgs(1, 1, uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE items SET status=(.+) buyer_id=").
		WithArgs(model.ItemStatusSwapped, uint64(1), sqlmock.AnyArg(), uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/items/redeem", `{"itemId":10}`)
	c.Set("user_id", uint64(1))
	c.Set("role", model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Item struct {
				Status string `json:"status"`
			} `json:"item"`
			Buyer struct {
				Points int64 `json:"points"`
			} `json:"buyer"`
			Seller struct {
				Points int64 `json:"points"`
			} `json:"seller"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, model.ItemStatusSwapped, body.Data.Item.Status)
	assert.Equal(t, int64(50), body.Data.Buyer.Points)
	assert.Equal(t, int64(100), body.Data.Seller.Points)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	h, mock, done := newItemHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 150, model.ItemStatusAvailable))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(1)).
		WillReturnRows(testUserRow(1, "buyer", 100))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(2)).
		WillReturnRows(testUserRow(2, "seller", 0))
	// no balance or status writes may happen
	mock.ExpectRollback()

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/items/redeem", `{"itemId":10}`)
	c.Set("user_id", uint64(1))
	c.Set("role", model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient points")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemUnavailableItem(t *testing.T) {
	h, mock, done := newItemHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 2, 100, model.ItemStatusSwapped))
	mock.ExpectRollback()

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/items/redeem", `{"itemId":10}`)
	c.Set("user_id", uint64(1))
	c.Set("role", model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not available")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemOwnItem(t *testing.T) {
	h, mock, done := newItemHandlerForTest(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 1, 100, model.ItemStatusAvailable))
	mock.ExpectRollback()

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/items/redeem", `{"itemId":10}`)
	c.Set("user_id", uint64(1))
	c.Set("role", model.RoleUser)

	require.NoError(t, h.Redeem(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "your own item")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItemValidation(t *testing.T) {
	h, _, done := newItemHandlerForTest(t)
	defer done()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing title", `{"description":"d","category":"clothing","condition":"new","images":["a"],"points":10}`, "title is required"},
		{"bad category", `{"title":"t","description":"d","category":"cars","condition":"new","images":["a"],"points":10}`, "invalid category"},
		{"no images", `{"title":"t","description":"d","category":"clothing","condition":"new","images":[],"points":10}`, "image is required"},
		{"points too high", `{"title":"t","description":"d","category":"clothing","condition":"new","images":["a"],"points":20000}`, "between 1 and 10000"},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := jsonCtx(e, http.MethodPost, "/api/items", tc.body)
			c.Set("user_id", uint64(1))
			c.Set("role", model.RoleUser)
			require.NoError(t, h.Create(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestUpdateItemPersistsCategory(t *testing.T) {
	h, mock, done := newItemHandlerForTest(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 1, 100, model.ItemStatusAvailable))
	// the recategorized value must be part of the UPDATE
	mock.ExpectExec("UPDATE items SET title=(.+)category=").
		WithArgs("Leather boots", "Broken in, plenty of life left", "shoes", "", "",
			"", "", "", model.ConditionGentlyUsed,
			[]byte(`["boots"]`), []byte(`["boots.jpg"]`), int64(120),
			model.ItemStatusAvailable, "", "", "", uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPut, "/api/items/10",
		`{"title":"Leather boots","description":"Broken in, plenty of life left",
		  "category":"shoes","condition":"gently_used",
		  "tags":["boots"],"images":["boots.jpg"],"points":120}`)
	c.SetPath("/api/items/:id")
	c.SetParamNames("id")
	c.SetParamValues("10")
	c.Set("user_id", uint64(1))
	c.Set("role", model.RoleUser)

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shoes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItemBlockedByPendingSwaps(t *testing.T) {
	h, mock, done := newItemHandlerForTest(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM items WHERE id=").
		WithArgs(uint64(10)).
		WillReturnRows(itemRow(10, 1, 100, model.ItemStatusPendingSwap))
	mock.ExpectQuery("SELECT COUNT(.+) FROM swap_requests").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/items/10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/items/:id")
	c.SetParamNames("id")
	c.SetParamValues("10")
	c.Set("user_id", uint64(1))
	c.Set("role", model.RoleUser)

	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
