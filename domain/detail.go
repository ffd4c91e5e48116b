package domain

// Detail is a note attached to an appointment, owned by the details service.
// Generated marks details synthesized by the text-generation side effect as
// opposed to manually entered ones.
type Detail struct {
	ID            int64  `json:"id"`
	AppointmentID int64  `json:"appointment_id"`
	Text          string `json:"text"`
	Generated     bool   `json:"generated"`
}
