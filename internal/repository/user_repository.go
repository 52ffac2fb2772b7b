package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/utils"
)

// userColumns is the scan list shared by every user SELECT.
const userColumns = "id,name,email,password_hash,avatar,bio,points,role," +
	"city,state,country,items_listed,items_swapped,total_swaps,rating,reviews," +
	"is_active,last_active,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.Bio,
		&u.Points, &u.Role,
		&u.Location.City, &u.Location.State, &u.Location.Country,
		&u.Stats.ItemsListed, &u.Stats.ItemsSwapped, &u.Stats.TotalSwaps,
		&u.Stats.Rating, &u.Stats.Reviews,
		&u.IsActive, &u.LastActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Create inserts a user and returns its ID.  The email is normalized to
// lower case and the password is bcrypt-hashed with the given cost.
// Every new account starts with the supplied points balance (normally
// model.StartingPoints).
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, points int64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, points) VALUES (?,?,?,?,?)",
		strings.TrimSpace(name), email, hash, role, points)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// FirstAdmin returns the first admin account, ordered by id.  Used by the
// admin-login endpoint to locate (or seed) the shared admin user.
func (r *UserRepo) FirstAdmin(ctx context.Context) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? ORDER BY id LIMIT 1", model.RoleAdmin))
}

// GetForUpdateTx loads a user inside a transaction with a row lock so the
// points balance read stays valid until commit.
func (r *UserRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	return scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1 FOR UPDATE", id))
}

// SetPointsTx writes an absolute points balance within a transaction.
func (r *UserRepo) SetPointsTx(ctx context.Context, tx *sql.Tx, id uint64, points int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE users SET points=? WHERE id=?", points, id)
	return err
}

// AddPointsTx increments (or decrements) a points balance within a
// transaction.  Used by swap approval, where the two balances move by a
// direct delta rather than through the ledger.
func (r *UserRepo) AddPointsTx(ctx context.Context, tx *sql.Tx, id uint64, delta int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE users SET points=points+? WHERE id=?", delta, id)
	return err
}

// AddSwapStatsTx bumps the swap counters within a transaction.
func (r *UserRepo) AddSwapStatsTx(ctx context.Context, tx *sql.Tx, id uint64, itemsSwapped, totalSwaps int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET items_swapped=items_swapped+?, total_swaps=total_swaps+? WHERE id=?",
		itemsSwapped, totalSwaps, id)
	return err
}

// SetRatingTx stores a recomputed running rating and bumps the review
// count within a transaction.
func (r *UserRepo) SetRatingTx(ctx context.Context, tx *sql.Tx, id uint64, rating float64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET rating=?, reviews=reviews+1 WHERE id=?", rating, id)
	return err
}

// AddItemsListed adjusts the items_listed counter (positive on listing,
// negative on delete).
func (r *UserRepo) AddItemsListed(ctx context.Context, id uint64, delta int) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET items_listed=items_listed+? WHERE id=?", delta, id)
	return err
}

// TouchLastActive refreshes the last_active timestamp.  Failures are the
// caller's to ignore; losing a touch is harmless.
func (r *UserRepo) TouchLastActive(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_active=NOW() WHERE id=?", id)
	return err
}

// UpdateProfile writes the self-editable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, avatar, bio string, loc model.Location) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, avatar=?, bio=?, city=?, state=?, country=? WHERE id=?",
		strings.TrimSpace(name), avatar, bio, loc.City, loc.State, loc.Country, id)
	return err
}

// UserFilter narrows List results.  Zero values mean "no constraint".
type UserFilter struct {
	Role     string
	Search   string // matched against name and email
	IsActive *bool
	SortBy   string // whitelisted column, default created_at
	SortDesc bool
	Page     int
	Limit    int
}

// userSortColumns whitelists ORDER BY targets so request input never
// reaches SQL directly.
var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"points":    "points",
	"rating":    "rating",
}

// List returns users matching the filter plus the total match count for
// pagination.  Only admins reach this through the API.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if f.Role != "" {
		where = append(where, "role=?")
		args = append(args, f.Role)
	}
	if f.IsActive != nil {
		where = append(where, "is_active=?")
		args = append(args, *f.IsActive)
	}
	if f.Search != "" {
		where = append(where, "(name LIKE ? OR email LIKE ?)")
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := userSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	page, limit := normalizePage(f.Page, f.Limit, 20)
	q := fmt.Sprintf("SELECT %s FROM users WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?",
		userColumns, cond, col, dir)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UserTotals aggregates the whole user table for the admin dashboard.
type UserTotals struct {
	TotalUsers  int     `json:"totalUsers"`
	ActiveUsers int     `json:"activeUsers"`
	TotalPoints int64   `json:"totalPoints"`
	AvgRating   float64 `json:"avgRating"`
}

// Totals computes platform-wide user aggregates.
func (r *UserRepo) Totals(ctx context.Context) (UserTotals, error) {
	var t UserTotals
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_active),0), COALESCE(SUM(points),0), COALESCE(AVG(rating),0) FROM users`).
		Scan(&t.TotalUsers, &t.ActiveUsers, &t.TotalPoints, &t.AvgRating)
	return t, err
}

// normalizePage clamps pagination input to sane values.
func normalizePage(page, limit, defLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defLimit
	}
	return page, limit
}
