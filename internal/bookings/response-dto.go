package bookings

type PaginatedBookings struct {
	Bookings   []Booking `json:"bookings"`
	TotalCount int64     `json:"total_count"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

type EligibilityResponse struct {
	BookingID string `json:"booking_id"`
	RefundEligibility
	Currency string `json:"currency"`
}
