package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rewear-app/rewear-api/internal/model"
)

// ItemRepo provides CRUD operations for catalog items.  Tags and images
// are stored as JSON columns and (un)marshalled here so the rest of the
// application only sees string slices.
type ItemRepo struct{ db *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

// DB exposes the underlying handle so services can open transactions
// spanning items, users and transactions.
func (r *ItemRepo) DB() *sql.DB { return r.db }

const itemColumns = "id,user_id,title,description,category,subcategory,brand," +
	"item_type,size,color,item_condition,tags,images,points,status," +
	"city,state,country,views,likes,featured,buyer_id,swapped_at,created_at,updated_at"

func scanItem(row interface{ Scan(...interface{}) error }) (model.Item, error) {
	var (
		it        model.Item
		tagsJSON  []byte
		imgJSON   []byte
		buyerID   sql.NullInt64
		swappedAt sql.NullTime
	)
	err := row.Scan(&it.ID, &it.UserID, &it.Title, &it.Description, &it.Category,
		&it.Subcategory, &it.Brand, &it.Type, &it.Size, &it.Color, &it.Condition,
		&tagsJSON, &imgJSON, &it.Points, &it.Status,
		&it.Location.City, &it.Location.State, &it.Location.Country,
		&it.Views, &it.Likes, &it.Featured, &buyerID, &swappedAt,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return it, err
	}
	if len(tagsJSON) > 0 {
		_ = json.Unmarshal(tagsJSON, &it.Tags)
	}
	if len(imgJSON) > 0 {
		_ = json.Unmarshal(imgJSON, &it.Images)
	}
	if buyerID.Valid {
		b := uint64(buyerID.Int64)
		it.BuyerID = &b
	}
	if swappedAt.Valid {
		t := swappedAt.Time
		it.SwappedAt = &t
	}
	return it, nil
}

// Create inserts a listing and populates the generated ID.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	tags, err := json.Marshal(it.Tags)
	if err != nil {
		return err
	}
	images, err := json.Marshal(it.Images)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO items (user_id,title,description,category,subcategory,brand,
		 item_type,size,color,item_condition,tags,images,points,status,city,state,country)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		it.UserID, it.Title, it.Description, it.Category, it.Subcategory, it.Brand,
		it.Type, it.Size, it.Color, it.Condition, tags, images, it.Points,
		model.ItemStatusAvailable, it.Location.City, it.Location.State, it.Location.Country)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	it.Status = model.ItemStatusAvailable
	return nil
}

// GetByID fetches a single item.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.Item, error) {
	return scanItem(r.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id=? LIMIT 1", id))
}

// GetForUpdateTx loads an item inside a transaction with a row lock so the
// availability check stays valid until commit.  This is what closes the
// double-redemption window: two concurrent buyers serialize on this lock.
func (r *ItemRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Item, error) {
	return scanItem(tx.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// SetStatusTx updates an item's lifecycle state within a transaction.
func (r *ItemRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx, "UPDATE items SET status=? WHERE id=?", status, id)
	return err
}

// MarkRedeemedTx records a points redemption: status, buyer and timestamp
// in one write.
func (r *ItemRepo) MarkRedeemedTx(ctx context.Context, tx *sql.Tx, id, buyerID uint64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE items SET status=?, buyer_id=?, swapped_at=? WHERE id=?",
		model.ItemStatusSwapped, buyerID, at, id)
	return err
}

// Update rewrites the owner-editable columns of a listing.
func (r *ItemRepo) Update(ctx context.Context, it model.Item) error {
	tags, err := json.Marshal(it.Tags)
	if err != nil {
		return err
	}
	images, err := json.Marshal(it.Images)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE items SET title=?,description=?,category=?,subcategory=?,brand=?,item_type=?,
		 size=?,color=?,item_condition=?,tags=?,images=?,points=?,status=?,
		 city=?,state=?,country=? WHERE id=?`,
		it.Title, it.Description, it.Category, it.Subcategory, it.Brand, it.Type,
		it.Size, it.Color, it.Condition, tags, images, it.Points, it.Status,
		it.Location.City, it.Location.State, it.Location.Country, it.ID)
	return err
}

// Delete removes a listing permanently.
func (r *ItemRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM items WHERE id=?", id)
	return err
}

// AddViews bumps the detail-page view counter.
func (r *ItemRepo) AddViews(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE items SET views=views+1 WHERE id=?", id)
	return err
}

// AddLike bumps the like counter.
func (r *ItemRepo) AddLike(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE items SET likes=likes+1 WHERE id=?", id)
	return err
}

// SetFeatured toggles the admin "featured" pin.
func (r *ItemRepo) SetFeatured(ctx context.Context, id uint64, featured bool) error {
	_, err := r.db.ExecContext(ctx, "UPDATE items SET featured=? WHERE id=?", featured, id)
	return err
}

// ItemDetail is an item joined with the public slice of its owner used on
// catalog and detail pages.
type ItemDetail struct {
	model.Item
	OwnerName   string  `json:"ownerName"`
	OwnerEmail  string  `json:"ownerEmail"`
	OwnerAvatar string  `json:"ownerAvatar"`
	OwnerRating float64 `json:"ownerRating"`
}

// ItemFilter narrows List results.  Zero values mean "no constraint".
type ItemFilter struct {
	Status    string
	Category  string
	Condition string
	UserID    uint64
	Featured  bool
	MinPoints int64
	MaxPoints int64
	Search    string // matched against title, description and brand
	SortBy    string
	SortDesc  bool
	Page      int
	Limit     int
}

var itemSortColumns = map[string]string{
	"createdAt": "i.created_at",
	"points":    "i.points",
	"views":     "i.views",
	"likes":     "i.likes",
	"title":     "i.title",
}

// List returns items matching the filter joined with owner info, plus the
// total match count for pagination.
func (r *ItemRepo) List(ctx context.Context, f ItemFilter) ([]ItemDetail, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if f.Status != "" {
		where = append(where, "i.status=?")
		args = append(args, f.Status)
	}
	if f.Category != "" && f.Category != "all" {
		where = append(where, "i.category=?")
		args = append(args, f.Category)
	}
	if f.Condition != "" && f.Condition != "all" {
		where = append(where, "i.item_condition=?")
		args = append(args, f.Condition)
	}
	if f.UserID != 0 {
		where = append(where, "i.user_id=?")
		args = append(args, f.UserID)
	}
	if f.Featured {
		where = append(where, "i.featured=1")
	}
	if f.MinPoints > 0 {
		where = append(where, "i.points>=?")
		args = append(args, f.MinPoints)
	}
	if f.MaxPoints > 0 {
		where = append(where, "i.points<=?")
		args = append(args, f.MaxPoints)
	}
	if f.Search != "" {
		where = append(where, "(i.title LIKE ? OR i.description LIKE ? OR i.brand LIKE ?)")
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat, pat)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items i WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := itemSortColumns[f.SortBy]
	if !ok {
		col = "i.created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	page, limit := normalizePage(f.Page, f.Limit, 12)
	q := fmt.Sprintf(`SELECT %s, u.name, u.email, u.avatar, u.rating
		FROM items i JOIN users u ON u.id = i.user_id
		WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?`, prefixedItemColumns(), cond, col, dir)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]ItemDetail, 0)
	for rows.Next() {
		d, err := scanItemDetail(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Related returns up to limit available items in the same category, owned
// by someone else, excluding the item itself.
func (r *ItemRepo) Related(ctx context.Context, category string, excludeItem, excludeUser uint64, limit int) ([]ItemDetail, error) {
	if limit < 1 {
		limit = 4
	}
	q := fmt.Sprintf(`SELECT %s, u.name, u.email, u.avatar, u.rating
		FROM items i JOIN users u ON u.id = i.user_id
		WHERE i.category=? AND i.id<>? AND i.user_id<>? AND i.status=?
		ORDER BY i.created_at DESC LIMIT ?`, prefixedItemColumns())
	rows, err := r.db.QueryContext(ctx, q, category, excludeItem, excludeUser,
		model.ItemStatusAvailable, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]ItemDetail, 0, limit)
	for rows.Next() {
		d, err := scanItemDetail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// ItemTotals aggregates the item table for the admin dashboard.
type ItemTotals struct {
	TotalItems     int   `json:"totalItems"`
	AvailableItems int   `json:"availableItems"`
	SwappedItems   int   `json:"swappedItems"`
	TotalPoints    int64 `json:"totalPoints"`
}

// Totals computes platform-wide item aggregates.
func (r *ItemRepo) Totals(ctx context.Context) (ItemTotals, error) {
	var t ItemTotals
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status='available'),0),
		        COALESCE(SUM(status='swapped'),0),
		        COALESCE(SUM(points),0)
		 FROM items`).
		Scan(&t.TotalItems, &t.AvailableItems, &t.SwappedItems, &t.TotalPoints)
	return t, err
}

func prefixedItemColumns() string {
	cols := strings.Split(itemColumns, ",")
	for i, c := range cols {
		cols[i] = "i." + c
	}
	return strings.Join(cols, ",")
}

func scanItemDetail(rows *sql.Rows) (ItemDetail, error) {
	var (
		d         ItemDetail
		tagsJSON  []byte
		imgJSON   []byte
		buyerID   sql.NullInt64
		swappedAt sql.NullTime
	)
	err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.Description, &d.Category,
		&d.Subcategory, &d.Brand, &d.Type, &d.Size, &d.Color, &d.Condition,
		&tagsJSON, &imgJSON, &d.Points, &d.Status,
		&d.Location.City, &d.Location.State, &d.Location.Country,
		&d.Views, &d.Likes, &d.Featured, &buyerID, &swappedAt,
		&d.CreatedAt, &d.UpdatedAt,
		&d.OwnerName, &d.OwnerEmail, &d.OwnerAvatar, &d.OwnerRating)
	if err != nil {
		return d, err
	}
	if len(tagsJSON) > 0 {
		_ = json.Unmarshal(tagsJSON, &d.Tags)
	}
	if len(imgJSON) > 0 {
		_ = json.Unmarshal(imgJSON, &d.Images)
	}
	if buyerID.Valid {
		b := uint64(buyerID.Int64)
		d.BuyerID = &b
	}
	if swappedAt.Valid {
		t := swappedAt.Time
		d.SwappedAt = &t
	}
	return d, nil
}
