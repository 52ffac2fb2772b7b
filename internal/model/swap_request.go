package model

import "time"

// Swap request states.  Rejected, cancelled and completed are terminal.
const (
    SwapStatusPending   = "pending"
    SwapStatusApproved  = "approved"
    SwapStatusRejected  = "rejected"
    SwapStatusCancelled = "cancelled"
    SwapStatusCompleted = "completed"
)

// Actions applied to a swap request via PUT /api/swap-requests/:id.
const (
    SwapActionApprove  = "approve"
    SwapActionReject   = "reject"
    SwapActionCancel   = "cancel"
    SwapActionComplete = "complete"
)

// Exchange shapes a swap request can take.
const (
    SwapTypeItemForItem   = "item_for_item"
    SwapTypeItemForPoints = "item_for_points"
    SwapTypePointsForItem = "points_for_item"
    SwapTypeMixed         = "mixed"
)

// ValidSwapType reports whether s is a known exchange shape.
func ValidSwapType(s string) bool {
    switch s {
    case SwapTypeItemForItem, SwapTypeItemForPoints, SwapTypePointsForItem, SwapTypeMixed:
        return true
    }
    return false
}

// NextStatus is the single transition table for the swap-request state
// machine: pending → approved|rejected|cancelled, approved → completed.
// It returns the resulting status and whether the transition is legal for
// the current one.  Actor authorization is checked separately by the
// caller; this function only validates (state, action) pairs.
func NextStatus(current, action string) (string, bool) {
    switch action {
    case SwapActionApprove:
        if current == SwapStatusPending {
            return SwapStatusApproved, true
        }
    case SwapActionReject:
        if current == SwapStatusPending {
            return SwapStatusRejected, true
        }
    case SwapActionCancel:
        if current == SwapStatusPending {
            return SwapStatusCancelled, true
        }
    case SwapActionComplete:
        if current == SwapStatusApproved {
            return SwapStatusCompleted, true
        }
    }
    return "", false
}

// SwapRequest is a proposal to exchange items and/or points between a
// requester and the owner of the target item.  At most one pending
// request may exist per (requester, item) pair.  Messages, ratings and
// reviews are recorded per side: the requester fields belong to the user
// who opened the request, the owner fields to the item owner.
//
// Fields:
//  ID              – primary key identifier.
//  RequesterID     – user proposing the swap.
//  ItemID          – target item (owned by someone else).
//  OfferedItemID   – item offered in exchange (nullable).
//  SwapType        – exchange shape (see constants above).
//  PointsOffered   – points the requester adds to the deal.
//  PointsRequested – points the requester asks from the owner.
//  Status          – state machine position.
//  Message         – free-form note shown to the other party.
//  RequesterMessage/OwnerMessage – per-side notes recorded on transitions.
//  MeetingLocation – optional handover location.
//  MeetingDate     – optional handover date (nullable).
//  RequesterRating/OwnerRating – 1–5 scores each side gives on completion
//                    (nullable).
//  RequesterReview/OwnerReview – per-side review text.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type SwapRequest struct {
    ID               uint64     // swap_requests.id
    RequesterID      uint64     // swap_requests.requester_id
    ItemID           uint64     // swap_requests.item_id
    OfferedItemID    *uint64    // swap_requests.offered_item_id (nullable)
    SwapType         string     // swap_requests.swap_type
    PointsOffered    int64      // swap_requests.points_offered
    PointsRequested  int64      // swap_requests.points_requested
    Status           string     // swap_requests.status
    Message          string     // swap_requests.message
    RequesterMessage string     // swap_requests.requester_message
    OwnerMessage     string     // swap_requests.owner_message
    MeetingLocation  string     // swap_requests.meeting_location
    MeetingDate      *time.Time // swap_requests.meeting_date (nullable)
    RequesterRating  *int       // swap_requests.requester_rating (nullable)
    OwnerRating      *int       // swap_requests.owner_rating (nullable)
    RequesterReview  string     // swap_requests.requester_review
    OwnerReview      string     // swap_requests.owner_review
    CreatedAt        time.Time  // swap_requests.created_at
    UpdatedAt        time.Time  // swap_requests.updated_at
}
