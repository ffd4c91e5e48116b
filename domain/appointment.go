package domain

// Appointment is the master record owned by the appointments service. The
// search service keeps an eventually-consistent copy populated only through
// events.
type Appointment struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}
