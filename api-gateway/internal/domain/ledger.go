package domain

// LinkStatus is the last completed step of link creation.
type LinkStatus string

const (
	LinkStatusInitiated       LinkStatus = "INITIATED"
	LinkStatusQRStored        LinkStatus = "QR_STORED"
	LinkStatusCartCreated     LinkStatus = "CART_CREATED"
	LinkStatusDiscountApplied LinkStatus = "DISCOUNT_APPLIED"
	LinkStatusEventPending    LinkStatus = "EVENT_PENDING"
	LinkStatusPublished       LinkStatus = "PUBLISHED"
	LinkStatusFailed          LinkStatus = "FAILED"
)
