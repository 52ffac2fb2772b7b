package model

import "time"

// Transaction types.  Purchase marks credits bought with real money,
// deduction and bonus are the two sides of a redemption, transfer covers
// admin adjustments between users, refund reverses an earlier deduction.
const (
    TxTypePurchase  = "purchase"
    TxTypeDeduction = "deduction"
    TxTypeTransfer  = "transfer"
    TxTypeBonus     = "bonus"
    TxTypeRefund    = "refund"
)

// Transaction statuses.  Ledger writes insert completed rows; pending is
// reserved for gateway-backed purchases awaiting confirmation.
const (
    TxStatusPending   = "pending"
    TxStatusCompleted = "completed"
    TxStatusFailed    = "failed"
    TxStatusCancelled = "cancelled"
)

// Transaction is an immutable audit record of a balance change.  Rows are
// only ever inserted as a side effect of ledger operations; nothing
// mutates them afterwards except status.  BalanceBefore/BalanceAfter pin
// the user's balance around the change so the ledger can be replayed.
type Transaction struct {
    ID            uint64    // transactions.id
    UserID        uint64    // transactions.user_id
    Type          string    // transactions.tx_type
    Amount        int64     // transactions.amount (always >= 0)
    Description   string    // transactions.description
    Status        string    // transactions.status
    PaymentMethod string    // transactions.payment_method (default "system")
    PaymentID     string    // transactions.payment_id
    ItemID        *uint64   // transactions.item_id (nullable)
    SwapRequestID *uint64   // transactions.swap_request_id (nullable)
    RelatedUserID *uint64   // transactions.related_user_id (nullable)
    BalanceBefore int64     // transactions.balance_before
    BalanceAfter  int64     // transactions.balance_after
    CreatedAt     time.Time // transactions.created_at
}

// TransactionStats summarizes a user's ledger history for the profile and
// credits pages.
type TransactionStats struct {
    TotalTransactions     int   `json:"totalTransactions"`
    TotalPurchased        int64 `json:"totalPurchased"`
    TotalDeducted         int64 `json:"totalDeducted"`
    TotalBonus            int64 `json:"totalBonus"`
    CompletedTransactions int   `json:"completedTransactions"`
    PendingTransactions   int   `json:"pendingTransactions"`
}
