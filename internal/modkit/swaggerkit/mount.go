// Package swaggerkit serves the screening OpenAPI document and a browser UI for it
package swaggerkit

import (
	"net/http"

	phttp "litscreen/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	// DocsPath is where the UI lives
	DocsPath = "/api/docs"
	// SpecPath serves the document the UI loads
	SpecPath = DocsPath + "/doc.json"
)

// Mount registers the UI and document routes. Nothing is mounted when disabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	ui := httpSwagger.Handler(
		httpSwagger.InstanceName("litscreen"),
		httpSwagger.URL(SpecPath),
		httpSwagger.DocExpansion("list"),
	)
	r.Get(DocsPath, func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, DocsPath+"/index.html", http.StatusFound)
	})
	r.Get(SpecPath, serveDocJSON())
	r.Handle(DocsPath+"/*", ui)
}
