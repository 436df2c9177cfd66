package server

import (
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	"ir-api/internal/apiserver/apierror"
)

// Validator 按 OpenAPI 文档校验请求参数
type Validator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewValidator 从 YAML 文档创建校验器
func NewValidator(data []byte) (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	// NewRouter 内部会校验文档
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}
	return &Validator{doc: doc, router: router}, nil
}

// Document 返回解析后的文档
func (v *Validator) Document() *openapi3.T {
	return v.doc
}

// Middleware 校验文档中声明的路由，未声明的路由直接放行
func (v *Validator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil || route == nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    &openapi3filter.Options{SkipSettingDefaults: true},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			apierror.WriteMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
