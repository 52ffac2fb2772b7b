package model

import "time"

// Roles assigned to users.  Moderators may curate listings; admins have
// access to the /api/admin and /api/users management endpoints.
const (
    RoleUser      = "user"
    RoleModerator = "moderator"
    RoleAdmin     = "admin"
)

// StartingPoints is credited to every account at registration.
const StartingPoints = 100

// Defaults for the admin account bootstrapped on the first passkey login.
const (
    DefaultAdminName   = "Admin User"
    DefaultAdminEmail  = "admin@rewear.com"
    DefaultAdminPoints = 10000
)

// Location is an optional city/state/country triple shared by users and
// items.  Empty fields are omitted from JSON output.
type Location struct {
    City    string `json:"city,omitempty"`
    State   string `json:"state,omitempty"`
    Country string `json:"country,omitempty"`
}

// UserStats aggregates a user's exchange activity.  Rating is a running
// weighted average over Reviews scores, recomputed whenever a completed
// swap records a new review.
type UserStats struct {
    ItemsListed  int     `json:"itemsListed"`
    ItemsSwapped int     `json:"itemsSwapped"`
    TotalSwaps   int     `json:"totalSwaps"`
    Rating       float64 `json:"rating"`
    Reviews      int     `json:"reviews"`
}

// User represents an application user record as stored in the `users`
// table.  Points is the internal currency balance and must never go
// negative; every mutation of it goes through the ledger or one of the
// swap/redemption flows.  The json tags are omitted here because these
// structs are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address (stored lowercased).
//  PasswordHash – bcrypt hashed password.
//  Avatar       – avatar image URL (may be empty).
//  Bio          – free-form profile text.
//  Points       – current points balance (never negative).
//  Role         – one of user, moderator, admin.
//  Location     – optional city/state/country.
//  Stats        – exchange activity counters and rating.
//  IsActive     – whether the account is active.
//  LastActive   – timestamp of the user's last authenticated request.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Name         string    // users.name
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Avatar       string    // users.avatar
    Bio          string    // users.bio
    Points       int64     // users.points
    Role         string    // users.role
    Location     Location  // users.city / users.state / users.country
    Stats        UserStats // users.items_listed .. users.reviews
    IsActive     bool      // users.is_active
    LastActive   time.Time // users.last_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// NextRating folds a new review score into a running weighted average:
// (rating*reviews + score) / (reviews + 1).
func NextRating(rating float64, reviews int, score int) float64 {
    return (rating*float64(reviews) + float64(score)) / float64(reviews+1)
}
