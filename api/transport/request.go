package transport

type AppointmentCreateRequest struct {
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

type AppointmentDeleteRequest struct {
	ID int64 `json:"id"`
}

type DetailCreateRequest struct {
	AppointmentID int64  `json:"appointmentId"`
	Text          string `json:"text"`
}

type DetailDeleteRequest struct {
	ID int64 `json:"id"`
}
