package dto

// SettlementEventRequest is the body posted by the order-fulfillment
// collaborator. Amounts travel as decimal strings; commission_rate is
// optional and falls back to the platform default when absent.
type SettlementEventRequest struct {
	Reference      string `json:"sub_order_reference" binding:"required,max=100"`
	VendorID       string `json:"vendor_id" binding:"required,uuid"`
	GrossAmount    string `json:"gross_amount" binding:"required,decimal_amount"`
	CommissionRate string `json:"commission_rate,omitempty" binding:"omitempty,decimal_amount"`
	EventType      string `json:"event_type" binding:"required,oneof=FULFILLED CANCELLED RETURNED"`
	OccurredAt     int64  `json:"occurred_at" binding:"required"`
}

// PayoutCreateRequest is the request body for a vendor withdrawal.
type PayoutCreateRequest struct {
	Amount string `json:"amount" binding:"required,decimal_amount"`
}

// PayoutRejectRequest is the request body for an admin rejection.
type PayoutRejectRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// WalletResponse is the vendor balance summary.
type WalletResponse struct {
	VendorID        string `json:"vendor_id"`
	Available       string `json:"available_balance"`
	Pending         string `json:"pending_balance"`
	Reserved        string `json:"reserved_balance"`
	TotalEarned     string `json:"total_earned"`
	TotalCommission string `json:"total_commission_paid"`
	TotalWithdrawn  string `json:"total_withdrawn"`
	TotalRefunded   string `json:"total_refunded"`
	Flagged         bool   `json:"flagged"`
	UpdatedAt       string `json:"updated_at"`
}

// EntryResponse is a single ledger entry.
type EntryResponse struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Category        string  `json:"category"`
	Amount          string  `json:"amount"`
	AvailableAfter  string  `json:"available_after"`
	PendingAfter    string  `json:"pending_after"`
	ReservedAfter   string  `json:"reserved_after"`
	Reference       string  `json:"reference"`
	Bucket          string  `json:"bucket,omitempty"`
	MaturesAt       *string `json:"matures_at,omitempty"`
	OriginalEntryID *string `json:"original_entry_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// EntryListResponse wraps a paginated ledger page.
type EntryListResponse struct {
	Items      []EntryResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// PayoutResponse is a payout request in any lifecycle state.
type PayoutResponse struct {
	ID          string  `json:"id"`
	VendorID    string  `json:"vendor_id"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	Reason      *string `json:"reason,omitempty"`
	RequestedAt string  `json:"requested_at"`
	DecidedAt   *string `json:"decided_at,omitempty"`
	DecidedBy   *string `json:"decided_by,omitempty"`
}

// PayoutListResponse wraps a paginated payout list.
type PayoutListResponse struct {
	Items      []PayoutResponse `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// ParkedEventResponse is a settlement event awaiting manual review.
type ParkedEventResponse struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	VendorID  string `json:"vendor_id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
	ParkedAt  string `json:"parked_at"`
}

// ParkedEventListResponse wraps the paginated review queue.
type ParkedEventListResponse struct {
	Items      []ParkedEventResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// ReplayResponse is the outcome of an audit replay.
type ReplayResponse struct {
	VendorID   string         `json:"vendor_id"`
	EntryCount int            `json:"entry_count"`
	Consistent bool           `json:"consistent"`
	Snapshot   WalletResponse `json:"snapshot"`
}

// AcceptedEventResponse acknowledges a settlement event.
type AcceptedEventResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"` // "accepted"
}
