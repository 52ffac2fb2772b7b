package model

import "time"

// Payment statuses mirror the gateway lifecycle.  The gateway integration
// is simulated, so rows normally go straight to completed.
const (
    PaymentStatusPending   = "pending"
    PaymentStatusCompleted = "completed"
    PaymentStatusFailed    = "failed"
)

// Payment records an external credit-purchase attempt: which package was
// bought, the fiat price, the simulated gateway result and the billing
// details supplied at checkout.
type Payment struct {
    ID               uint64    // payments.id
    UserID           uint64    // payments.user_id
    PackageID        string    // payments.package_id
    AmountCents      int64     // payments.amount_cents (fiat price)
    PointsToReceive  int64     // payments.points_to_receive
    PaymentMethod    string    // payments.payment_method
    Gateway          string    // payments.gateway
    GatewayPaymentID string    // payments.gateway_payment_id
    Status           string    // payments.status
    BillingFirstName string    // payments.billing_first_name
    BillingLastName  string    // payments.billing_last_name
    BillingEmail     string    // payments.billing_email
    BillingPhone     string    // payments.billing_phone
    CreatedAt        time.Time // payments.created_at
    UpdatedAt        time.Time // payments.updated_at
}
