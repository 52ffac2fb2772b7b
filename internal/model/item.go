package model

import "time"

// Item lifecycle states.  Status transitions are driven exclusively by the
// swap and redemption flows: a pending swap request parks the item in
// pending_swap, approval or redemption moves it to swapped, and reject/
// cancel/delete return it to available.
const (
    ItemStatusAvailable   = "available"
    ItemStatusPendingSwap = "pending_swap"
    ItemStatusSwapped     = "swapped"
    ItemStatusRemoved     = "removed"
)

// Garment condition grades accepted at listing time.
const (
    ConditionNew        = "new"
    ConditionLikeNew    = "like_new"
    ConditionGentlyUsed = "gently_used"
    ConditionUsed       = "used"
    ConditionVintage    = "vintage"
)

// Bounds on an item's points price.
const (
    MinItemPoints = 1
    MaxItemPoints = 10000
)

// itemCategories lists the catalog categories accepted at listing time.
var itemCategories = map[string]bool{
    "clothing":    true,
    "accessories": true,
    "shoes":       true,
    "bags":        true,
    "jewelry":     true,
    "electronics": true,
    "books":       true,
    "home":        true,
}

// itemConditions is the set of accepted condition grades.
var itemConditions = map[string]bool{
    ConditionNew:        true,
    ConditionLikeNew:    true,
    ConditionGentlyUsed: true,
    ConditionUsed:       true,
    ConditionVintage:    true,
}

// ValidCategory reports whether s is an accepted catalog category.
func ValidCategory(s string) bool { return itemCategories[s] }

// ValidCondition reports whether s is an accepted condition grade.
func ValidCondition(s string) bool { return itemConditions[s] }

// ValidItemStatus reports whether s is a known item lifecycle state.
func ValidItemStatus(s string) bool {
    switch s {
    case ItemStatusAvailable, ItemStatusPendingSwap, ItemStatusSwapped, ItemStatusRemoved:
        return true
    }
    return false
}

// Item describes a listed garment owned by exactly one user.  An item with
// status swapped carries either a BuyerID (points redemption) or is
// referenced by a completed swap request.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the listing.
//  Title       – listing title.
//  Description – listing description.
//  Category    – catalog category (see itemCategories).
//  Subcategory – optional free-form subcategory.
//  Brand       – optional brand name.
//  Type        – garment type (e.g. "jacket").
//  Size        – garment size label.
//  Color       – optional color.
//  Condition   – condition grade (see itemConditions).
//  Tags        – free-form search tags, stored as JSON.
//  Images      – image URLs, at least one required, stored as JSON.
//  Points      – asking price in points (1–10000).
//  Status      – lifecycle state.
//  Location    – optional city/state/country of the garment.
//  Views       – detail-page view counter.
//  Likes       – like counter.
//  Featured    – whether an admin pinned the listing.
//  BuyerID     – set when the item was redeemed for points (nullable).
//  SwappedAt   – when the item left the catalog (nullable).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Item struct {
    ID          uint64     // items.id
    UserID      uint64     // items.user_id
    Title       string     // items.title
    Description string     // items.description
    Category    string     // items.category
    Subcategory string     // items.subcategory
    Brand       string     // items.brand
    Type        string     // items.item_type
    Size        string     // items.size
    Color       string     // items.color
    Condition   string     // items.item_condition
    Tags        []string   // items.tags (JSON column)
    Images      []string   // items.images (JSON column)
    Points      int64      // items.points
    Status      string     // items.status
    Location    Location   // items.city / items.state / items.country
    Views       uint64     // items.views
    Likes       uint64     // items.likes
    Featured    bool       // items.featured
    BuyerID     *uint64    // items.buyer_id (nullable)
    SwappedAt   *time.Time // items.swapped_at (nullable)
    CreatedAt   time.Time  // items.created_at
    UpdatedAt   time.Time  // items.updated_at
}
