package api

import (
	"net/http"

	"github.com/JaimeStill/notary/pkg/openapi"
	"github.com/JaimeStill/notary/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, spec []byte) {
	routes.Register(mux, domain.Routes()...)

	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))
}
