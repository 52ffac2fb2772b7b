package handler

import (
	"time"

	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/repository"
)

// View types shape the JSON bodies.  Storage models stay free of json
// tags; everything that leaves the API goes through one of these.

type userView struct {
	ID         uint64          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Avatar     string          `json:"avatar,omitempty"`
	Bio        string          `json:"bio,omitempty"`
	Points     int64           `json:"points"`
	Role       string          `json:"role"`
	Location   model.Location  `json:"location"`
	Stats      model.UserStats `json:"stats"`
	IsActive   bool            `json:"isActive"`
	LastActive time.Time       `json:"lastActive"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func newUserView(u model.User) userView {
	return userView{
		ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, Bio: u.Bio,
		Points: u.Points, Role: u.Role, Location: u.Location, Stats: u.Stats,
		IsActive: u.IsActive, LastActive: u.LastActive, CreatedAt: u.CreatedAt,
	}
}

// publicUserView is the slice of a profile visible to other users.
type publicUserView struct {
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Avatar   string          `json:"avatar,omitempty"`
	Bio      string          `json:"bio,omitempty"`
	Location model.Location  `json:"location"`
	Stats    model.UserStats `json:"stats"`
	MemberAt time.Time       `json:"memberSince"`
}

func newPublicUserView(u model.User) publicUserView {
	return publicUserView{
		ID: u.ID, Name: u.Name, Avatar: u.Avatar, Bio: u.Bio,
		Location: u.Location, Stats: u.Stats, MemberAt: u.CreatedAt,
	}
}

type itemOwnerView struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar string  `json:"avatar,omitempty"`
	Rating float64 `json:"rating"`
}

type itemView struct {
	ID          uint64         `json:"id"`
	UserID      uint64         `json:"userId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Subcategory string         `json:"subcategory,omitempty"`
	Brand       string         `json:"brand,omitempty"`
	Type        string         `json:"type,omitempty"`
	Size        string         `json:"size,omitempty"`
	Color       string         `json:"color,omitempty"`
	Condition   string         `json:"condition"`
	Tags        []string       `json:"tags"`
	Images      []string       `json:"images"`
	Points      int64          `json:"points"`
	Status      string         `json:"status"`
	Location    model.Location `json:"location"`
	Views       uint64         `json:"views"`
	Likes       uint64         `json:"likes"`
	Featured    bool           `json:"featured"`
	BuyerID     *uint64        `json:"buyerId,omitempty"`
	SwappedAt   *time.Time     `json:"swappedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Owner       *itemOwnerView `json:"owner,omitempty"`
}

func newItemView(it model.Item) itemView {
	tags := it.Tags
	if tags == nil {
		tags = []string{}
	}
	images := it.Images
	if images == nil {
		images = []string{}
	}
	return itemView{
		ID: it.ID, UserID: it.UserID, Title: it.Title, Description: it.Description,
		Category: it.Category, Subcategory: it.Subcategory, Brand: it.Brand,
		Type: it.Type, Size: it.Size, Color: it.Color, Condition: it.Condition,
		Tags: tags, Images: images, Points: it.Points, Status: it.Status,
		Location: it.Location, Views: it.Views, Likes: it.Likes, Featured: it.Featured,
		BuyerID: it.BuyerID, SwappedAt: it.SwappedAt,
		CreatedAt: it.CreatedAt, UpdatedAt: it.UpdatedAt,
	}
}

func newItemDetailView(d repository.ItemDetail) itemView {
	v := newItemView(d.Item)
	v.Owner = &itemOwnerView{
		Name: d.OwnerName, Email: d.OwnerEmail, Avatar: d.OwnerAvatar, Rating: d.OwnerRating,
	}
	return v
}

func newItemDetailViews(ds []repository.ItemDetail) []itemView {
	out := make([]itemView, 0, len(ds))
	for _, d := range ds {
		out = append(out, newItemDetailView(d))
	}
	return out
}

type swapView struct {
	ID               uint64     `json:"id"`
	RequesterID      uint64     `json:"requesterId"`
	RequesterName    string     `json:"requesterName,omitempty"`
	ItemID           uint64     `json:"itemId"`
	ItemTitle        string     `json:"itemTitle,omitempty"`
	ItemOwnerID      uint64     `json:"itemOwnerId,omitempty"`
	ItemOwnerName    string     `json:"itemOwnerName,omitempty"`
	OfferedItemID    *uint64    `json:"offeredItemId,omitempty"`
	OfferedItemTitle string     `json:"offeredItemTitle,omitempty"`
	SwapType         string     `json:"swapType"`
	PointsOffered    int64      `json:"pointsOffered"`
	PointsRequested  int64      `json:"pointsRequested"`
	Status           string     `json:"status"`
	Message          string     `json:"message,omitempty"`
	RequesterMessage string     `json:"requesterMessage,omitempty"`
	OwnerMessage     string     `json:"ownerMessage,omitempty"`
	MeetingLocation  string     `json:"meetingLocation,omitempty"`
	MeetingDate      *time.Time `json:"meetingDate,omitempty"`
	RequesterRating  *int       `json:"requesterRating,omitempty"`
	OwnerRating      *int       `json:"ownerRating,omitempty"`
	RequesterReview  string     `json:"requesterReview,omitempty"`
	OwnerReview      string     `json:"ownerReview,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func newSwapView(s model.SwapRequest) swapView {
	return swapView{
		ID: s.ID, RequesterID: s.RequesterID, ItemID: s.ItemID,
		OfferedItemID: s.OfferedItemID, SwapType: s.SwapType,
		PointsOffered: s.PointsOffered, PointsRequested: s.PointsRequested,
		Status: s.Status, Message: s.Message,
		RequesterMessage: s.RequesterMessage, OwnerMessage: s.OwnerMessage,
		MeetingLocation: s.MeetingLocation, MeetingDate: s.MeetingDate,
		RequesterRating: s.RequesterRating, OwnerRating: s.OwnerRating,
		RequesterReview: s.RequesterReview, OwnerReview: s.OwnerReview,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

func newSwapDetailView(d repository.SwapDetail) swapView {
	v := newSwapView(d.SwapRequest)
	v.RequesterName = d.RequesterName
	v.ItemTitle = d.ItemTitle
	v.ItemOwnerID = d.ItemOwnerID
	v.ItemOwnerName = d.ItemOwnerName
	v.OfferedItemTitle = d.OfferedItemTitle
	return v
}

type txView struct {
	ID            uint64    `json:"id"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	ItemID        *uint64   `json:"itemId,omitempty"`
	SwapRequestID *uint64   `json:"swapRequestId,omitempty"`
	RelatedUserID *uint64   `json:"relatedUserId,omitempty"`
	BalanceBefore int64     `json:"balanceBefore"`
	BalanceAfter  int64     `json:"balanceAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newTxView(t model.Transaction) txView {
	return txView{
		ID: t.ID, Type: t.Type, Amount: t.Amount, Description: t.Description,
		Status: t.Status, PaymentMethod: t.PaymentMethod,
		ItemID: t.ItemID, SwapRequestID: t.SwapRequestID, RelatedUserID: t.RelatedUserID,
		BalanceBefore: t.BalanceBefore, BalanceAfter: t.BalanceAfter,
		CreatedAt: t.CreatedAt,
	}
}

func newTxViews(ts []model.Transaction) []txView {
	out := make([]txView, 0, len(ts))
	for _, t := range ts {
		out = append(out, newTxView(t))
	}
	return out
}

type paymentView struct {
	ID               uint64    `json:"id"`
	PackageID        string    `json:"packageId"`
	AmountCents      int64     `json:"amountCents"`
	PointsToReceive  int64     `json:"pointsToReceive"`
	PaymentMethod    string    `json:"paymentMethod"`
	Gateway          string    `json:"gateway"`
	GatewayPaymentID string    `json:"gatewayPaymentId"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newPaymentView(p model.Payment) paymentView {
	return paymentView{
		ID: p.ID, PackageID: p.PackageID, AmountCents: p.AmountCents,
		PointsToReceive: p.PointsToReceive, PaymentMethod: p.PaymentMethod,
		Gateway: p.Gateway, GatewayPaymentID: p.GatewayPaymentID,
		Status: p.Status, CreatedAt: p.CreatedAt,
	}
}

// pagination is the standard list-envelope block.
type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func newPagination(page, limit, total int) pagination {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
