// Package swagger serves the OpenAPI document and a Swagger UI for it.
package swagger

import (
	"context"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Register attaches Swagger UI and the OpenAPI spec routes to mux.
//
//	GET /openapi.yaml  -> embedded OpenAPI document
//	GET /api-docs/     -> Swagger UI loading /openapi.yaml
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})

	mux.Handle("GET /api-docs/", httpSwagger.Handler(
		httpSwagger.URL("/openapi.yaml"),
		httpSwagger.DocExpansion("list"),
	))
}
