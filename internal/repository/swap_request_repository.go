package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rewear-app/rewear-api/internal/model"
)

// SwapRequestRepo persists swap proposals.  All state-changing writes take
// a *sql.Tx because swap transitions always touch items and users in the
// same transaction.
type SwapRequestRepo struct{ db *sql.DB }

func NewSwapRequestRepo(db *sql.DB) *SwapRequestRepo { return &SwapRequestRepo{db: db} }

func (r *SwapRequestRepo) DB() *sql.DB { return r.db }

const swapColumns = "id,requester_id,item_id,offered_item_id,swap_type," +
	"points_offered,points_requested,status,message,requester_message,owner_message," +
	"meeting_location,meeting_date,requester_rating,owner_rating," +
	"requester_review,owner_review,created_at,updated_at"

func scanSwap(row interface{ Scan(...interface{}) error }) (model.SwapRequest, error) {
	var (
		s         model.SwapRequest
		offered   sql.NullInt64
		meetDate  sql.NullTime
		reqRating sql.NullInt64
		ownRating sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.RequesterID, &s.ItemID, &offered, &s.SwapType,
		&s.PointsOffered, &s.PointsRequested, &s.Status, &s.Message,
		&s.RequesterMessage, &s.OwnerMessage,
		&s.MeetingLocation, &meetDate, &reqRating, &ownRating,
		&s.RequesterReview, &s.OwnerReview, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return s, err
	}
	if offered.Valid {
		v := uint64(offered.Int64)
		s.OfferedItemID = &v
	}
	if meetDate.Valid {
		t := meetDate.Time
		s.MeetingDate = &t
	}
	if reqRating.Valid {
		v := int(reqRating.Int64)
		s.RequesterRating = &v
	}
	if ownRating.Valid {
		v := int(ownRating.Int64)
		s.OwnerRating = &v
	}
	return s, nil
}

// CreateTx inserts a pending swap request within a transaction and
// populates the generated ID.
func (r *SwapRequestRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.SwapRequest) error {
	var offered interface{}
	if s.OfferedItemID != nil {
		offered = *s.OfferedItemID
	}
	var meetDate interface{}
	if s.MeetingDate != nil {
		meetDate = *s.MeetingDate
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO swap_requests (requester_id,item_id,offered_item_id,swap_type,
		 points_offered,points_requested,status,message,meeting_location,meeting_date)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.RequesterID, s.ItemID, offered, s.SwapType,
		s.PointsOffered, s.PointsRequested, model.SwapStatusPending,
		s.Message, s.MeetingLocation, meetDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Status = model.SwapStatusPending
	return nil
}

// GetByID fetches a swap request.
func (r *SwapRequestRepo) GetByID(ctx context.Context, id uint64) (model.SwapRequest, error) {
	return scanSwap(r.db.QueryRowContext(ctx,
		"SELECT "+swapColumns+" FROM swap_requests WHERE id=? LIMIT 1", id))
}

// GetForUpdateTx loads a swap request inside a transaction with a row lock
// so concurrent actions on the same request serialize.
func (r *SwapRequestRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.SwapRequest, error) {
	return scanSwap(tx.QueryRowContext(ctx,
		"SELECT "+swapColumns+" FROM swap_requests WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// HasPendingTx reports whether the requester already has a pending request
// for the item.  Called under the item row lock, so the answer stays valid
// until the surrounding transaction commits.
func (r *SwapRequestRepo) HasPendingTx(ctx context.Context, tx *sql.Tx, requesterID, itemID uint64) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM swap_requests WHERE requester_id=? AND item_id=? AND status=?",
		requesterID, itemID, model.SwapStatusPending).Scan(&n)
	return n > 0, err
}

// CountPendingByItem counts pending requests targeting or offering an item.
// Item deletion is blocked while this is non-zero.
func (r *SwapRequestRepo) CountPendingByItem(ctx context.Context, itemID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM swap_requests
		 WHERE (item_id=? OR offered_item_id=?) AND status=?`,
		itemID, itemID, model.SwapStatusPending).Scan(&n)
	return n, err
}

// CountPendingByItemTx is CountPendingByItem under an open transaction.
func (r *SwapRequestRepo) CountPendingByItemTx(ctx context.Context, tx *sql.Tx, itemID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM swap_requests
		 WHERE (item_id=? OR offered_item_id=?) AND status=?`,
		itemID, itemID, model.SwapStatusPending).Scan(&n)
	return n, err
}

// SetStatusTx moves a request to a new state and records the acting side's
// message.  side is "requester" or "owner".
func (r *SwapRequestRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status, side, message string) error {
	col := "owner_message"
	if side == "requester" {
		col = "requester_message"
	}
	_, err := tx.ExecContext(ctx,
		"UPDATE swap_requests SET status=?, "+col+"=? WHERE id=?",
		status, message, id)
	return err
}

// CompleteTx marks a request completed and records the acting side's
// message, rating and review in that side's own columns.  rating may be
// nil when the actor skipped the review step.
func (r *SwapRequestRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, side, message string, rating *int, review string) error {
	msgCol, ratingCol, reviewCol := "owner_message", "owner_rating", "owner_review"
	if side == "requester" {
		msgCol, ratingCol, reviewCol = "requester_message", "requester_rating", "requester_review"
	}
	var rv interface{}
	if rating != nil {
		rv = *rating
	}
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE swap_requests SET status=?, %s=?, %s=?, %s=? WHERE id=?", msgCol, ratingCol, reviewCol),
		model.SwapStatusCompleted, message, rv, review, id)
	return err
}

// DeleteTx removes a request row within a transaction.  Only pending and
// cancelled requests are ever deleted; the service enforces that.
func (r *SwapRequestRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM swap_requests WHERE id=?", id)
	return err
}

// SwapDetail joins a swap request with the names needed to render an
// inbox row without extra queries.
type SwapDetail struct {
	model.SwapRequest
	RequesterName    string `json:"requesterName"`
	ItemTitle        string `json:"itemTitle"`
	ItemOwnerID      uint64 `json:"itemOwnerId"`
	ItemOwnerName    string `json:"itemOwnerName"`
	OfferedItemTitle string `json:"offeredItemTitle,omitempty"`
}

// SwapFilter narrows List results.  UserID selects requests where the user
// is requester or item owner; Box optionally restricts to one side.
type SwapFilter struct {
	UserID uint64
	Box    string // "incoming", "outgoing" or "" for both
	Status string
	ItemID uint64
	Page   int
	Limit  int
}

// List returns swap requests visible to the filter's user, newest first,
// plus the total match count.
func (r *SwapRequestRepo) List(ctx context.Context, f SwapFilter) ([]SwapDetail, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	switch f.Box {
	case "incoming":
		where = append(where, "i.user_id=?")
		args = append(args, f.UserID)
	case "outgoing":
		where = append(where, "s.requester_id=?")
		args = append(args, f.UserID)
	default:
		if f.UserID != 0 {
			where = append(where, "(s.requester_id=? OR i.user_id=?)")
			args = append(args, f.UserID, f.UserID)
		}
	}
	if f.Status != "" && f.Status != "all" {
		where = append(where, "s.status=?")
		args = append(args, f.Status)
	}
	if f.ItemID != 0 {
		where = append(where, "s.item_id=?")
		args = append(args, f.ItemID)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM swap_requests s JOIN items i ON i.id=s.item_id WHERE `+cond,
		args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(f.Page, f.Limit, 20)
	cols := prefixedSwapColumns()
	q := fmt.Sprintf(`SELECT %s, ru.name, i.title, i.user_id, ou.name,
		COALESCE(oi.title,'')
		FROM swap_requests s
		JOIN items i ON i.id = s.item_id
		JOIN users ru ON ru.id = s.requester_id
		JOIN users ou ON ou.id = i.user_id
		LEFT JOIN items oi ON oi.id = s.offered_item_id
		WHERE %s ORDER BY s.created_at DESC LIMIT ? OFFSET ?`, cols, cond)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]SwapDetail, 0)
	for rows.Next() {
		d, err := scanSwapDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func prefixedSwapColumns() string {
	cols := strings.Split(swapColumns, ",")
	for i, c := range cols {
		cols[i] = "s." + c
	}
	return strings.Join(cols, ",")
}

func scanSwapDetail(rows *sql.Rows) (SwapDetail, error) {
	var (
		d         SwapDetail
		offered   sql.NullInt64
		meetDate  sql.NullTime
		reqRating sql.NullInt64
		ownRating sql.NullInt64
	)
	err := rows.Scan(&d.ID, &d.RequesterID, &d.ItemID, &offered, &d.SwapType,
		&d.PointsOffered, &d.PointsRequested, &d.Status, &d.Message,
		&d.RequesterMessage, &d.OwnerMessage,
		&d.MeetingLocation, &meetDate, &reqRating, &ownRating,
		&d.RequesterReview, &d.OwnerReview, &d.CreatedAt, &d.UpdatedAt,
		&d.RequesterName, &d.ItemTitle, &d.ItemOwnerID, &d.ItemOwnerName,
		&d.OfferedItemTitle)
	if err != nil {
		return d, err
	}
	if offered.Valid {
		v := uint64(offered.Int64)
		d.OfferedItemID = &v
	}
	if meetDate.Valid {
		t := meetDate.Time
		d.MeetingDate = &t
	}
	if reqRating.Valid {
		v := int(reqRating.Int64)
		d.RequesterRating = &v
	}
	if ownRating.Valid {
		v := int(ownRating.Int64)
		d.OwnerRating = &v
	}
	return d, nil
}
