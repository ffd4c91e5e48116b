package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/agendly/agenda/api/handler"
)

// Appointments builds the route table for the appointments service.
func Appointments(appointment *apiHandler.AppointmentHandler, health *apiHandler.HealthHandler) *router.Router {
	r := router.New()

	r.GET("/health", health.Check)

	r.POST("/appointment", appointment.Create)
	r.POST("/appointment/delete", appointment.Delete)

	return r
}

// Details builds the route table for the details service.
func Details(detail *apiHandler.DetailHandler, health *apiHandler.HealthHandler) *router.Router {
	r := router.New()

	r.GET("/health", health.Check)

	r.POST("/detail", detail.Create)
	r.POST("/detail/delete", detail.Delete)

	return r
}

// Search builds the route table for the search service.
func Search(search *apiHandler.SearchHandler, health *apiHandler.HealthHandler) *router.Router {
	r := router.New()

	r.GET("/health", health.Check)

	r.GET("/appointment/{id}", search.Get)

	return r
}
