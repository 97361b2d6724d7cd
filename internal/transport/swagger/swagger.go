package swagger

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Document is the parsed OpenAPI description served next to the Swagger UI.
type Document struct {
	raw []byte
	doc *openapi3.T
}

// Load reads and validates the OpenAPI file at path.
func Load(ctx context.Context, path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read openapi document: %w", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return &Document{raw: raw, doc: doc}, nil
}

// Routes lists every documented operation as "METHOD /path", with server
// base paths prefixed.
func (d *Document) Routes() []string {
	base := ""
	if len(d.doc.Servers) > 0 {
		base = strings.TrimRight(d.doc.Servers[0].URL, "/")
	}

	var routes []string
	for path, item := range d.doc.Paths.Map() {
		for method := range item.Operations() {
			routes = append(routes, strings.ToUpper(method)+" "+base+path)
		}
	}
	sort.Strings(routes)
	return routes
}

func (d *Document) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(d.raw)
}

func Handler() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}
