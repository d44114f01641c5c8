package api

import (
	"net/http"

	"github.com/genomecurate/curia/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Schemas.Handler().Routes(),
		domain.Pairs.Handler().Routes(),
		domain.Records.Handler(domain.Workflow, domain.Reviews).Routes(),
		domain.Reviews.Handler().Routes(),
	)
}
