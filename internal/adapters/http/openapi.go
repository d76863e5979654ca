package http

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// contractYAML is the API description served at /openapi.yaml. The
// handlers in this package are written against it by hand; loadContract
// validates the document on startup so a malformed edit fails fast
// instead of serving garbage to Swagger UI.
//
//go:embed openapi.yaml
var contractYAML []byte

func loadContract() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("parse openapi contract: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi contract: %w", err)
	}
	return doc, nil
}
