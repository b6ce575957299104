package handlers

import (
	"fmt"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
)

// pathParam binds a required simple-style path parameter.
func pathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", application.NewInvalidInputError(fmt.Errorf("invalid format for parameter %s: %w", name, err))
	}
	return value, nil
}
