package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/kirillkom/document-approval/internal/adapters/http/openapi"
	"github.com/kirillkom/document-approval/internal/core/domain"
)

func pathUUID(r *http.Request, name string) (string, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		fe := domain.FieldErrors{}
		fe.Add(name, "must be a UUID")
		return "", fe.Err("bind path parameter")
	}
	return id.String(), nil
}

type listNotificationsParams struct {
	Unread *bool
	Limit  *int
}

func bindListNotificationsParams(r *http.Request) (listNotificationsParams, error) {
	var params listNotificationsParams
	fe := domain.FieldErrors{}
	if err := runtime.BindQueryParameter("form", true, false, "unread", r.URL.Query(), &params.Unread); err != nil {
		fe.Add("unread", "must be a boolean")
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		fe.Add("limit", "must be an integer")
	}
	return params, fe.Err("bind query parameters")
}

// decodeBody reads a JSON body, validates it against the operation's schema and
// decodes it into dst. An empty body is accepted when allowEmpty is set.
func (rt *Router) decodeBody(w http.ResponseWriter, r *http.Request, path string, allowEmpty bool, dst any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fe := domain.FieldErrors{}
			fe.Add("body", fmt.Sprintf("must not exceed %d bytes", tooLarge.Limit))
			return fe.Err("read request body")
		}
		return domain.WrapError(domain.ErrInvalidInput, "read request body", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		if allowEmpty {
			return nil
		}
		fe := domain.FieldErrors{}
		fe.Add("body", "is required")
		return fe.Err("read request body")
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		fe := domain.FieldErrors{}
		fe.Add("body", "must be valid JSON")
		return fe.Err("decode request body")
	}
	if schema := openapi.RequestSchema(rt.contract, r.Method, path); schema != nil {
		if err := schema.VisitJSON(generic, openapi3.MultiErrors()); err != nil {
			return schemaFieldErrors(err).Err("validate request body")
		}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}

func schemaFieldErrors(err error) domain.FieldErrors {
	fe := domain.FieldErrors{}
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			fe = append(fe, schemaFieldErrors(e)...)
		}
		return fe
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		field := strings.Join(se.JSONPointer(), ".")
		if field == "" {
			field = "body"
		}
		fe.Add(field, se.Reason)
		return fe
	}
	fe.Add("body", err.Error())
	return fe
}
