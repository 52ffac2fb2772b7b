// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into an activity log.
package queue

// ItemRedeemedEvent is published when a points redemption commits.  It
// carries enough information for downstream consumers to log, notify or
// feed analytics without querying the primary database.
type ItemRedeemedEvent struct {
	ItemID         uint64 `json:"item_id"`
	ItemTitle      string `json:"item_title"`
	BuyerID        uint64 `json:"buyer_id"`
	BuyerName      string `json:"buyer_name"`
	SellerID       uint64 `json:"seller_id"`
	SellerName     string `json:"seller_name"`
	PointsSpent    int64  `json:"points_spent"`
	SellerEarnings int64  `json:"seller_earnings"`
	RedeemedAt     string `json:"redeemed_at"`
}

// SwapCompletedEvent is published when a swap request reaches the
// completed state.
type SwapCompletedEvent struct {
	SwapRequestID   uint64 `json:"swap_request_id"`
	ItemID          uint64 `json:"item_id"`
	ItemTitle       string `json:"item_title"`
	RequesterID     uint64 `json:"requester_id"`
	OwnerID         uint64 `json:"owner_id"`
	SwapType        string `json:"swap_type"`
	PointsOffered   int64  `json:"points_offered"`
	PointsRequested int64  `json:"points_requested"`
	CompletedAt     string `json:"completed_at"`
}
