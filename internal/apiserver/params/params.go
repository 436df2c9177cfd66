// Package params 请求参数绑定
//
// 查询参数和路径参数通过 oapi-codegen runtime 绑定，
// 与 OpenAPI 文档中的 form / simple 风格保持一致。
package params

import (
	"fmt"
	"net/http"

	"github.com/containerd/errdefs"
	"github.com/oapi-codegen/runtime"

	"ir-api/internal/shared/storage/specification"
)

// ErrInvalidParameter 参数格式错误
var ErrInvalidParameter = fmt.Errorf("invalid parameter: %w", errdefs.ErrInvalidArgument)

// PageParams 分页与排序查询参数
type PageParams struct {
	Limit          *int    `json:"limit,omitempty"`
	Offset         *int    `json:"offset,omitempty"`
	OrderBy        *string `json:"order_by,omitempty"`
	OrderDirection *string `json:"order_direction,omitempty"`
}

// Page 转换为规格分页参数，未提供的字段保持零值（由规格取默认值）
func (p PageParams) Page() specification.Page {
	var page specification.Page
	if p.Limit != nil {
		page.Limit = *p.Limit
	}
	if p.Offset != nil {
		page.Offset = *p.Offset
	}
	if p.OrderBy != nil {
		page.OrderBy = *p.OrderBy
	}
	if p.OrderDirection != nil {
		page.Direction = specification.ParseDirection(*p.OrderDirection)
	} else {
		page.Direction = specification.Desc
	}
	return page
}

// BindPage 绑定 limit / offset / order_by / order_direction
func BindPage(r *http.Request) (specification.Page, error) {
	var p PageParams
	query := r.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &p.Limit); err != nil {
		return specification.Page{}, invalid("limit", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &p.Offset); err != nil {
		return specification.Page{}, invalid("offset", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "order_by", query, &p.OrderBy); err != nil {
		return specification.Page{}, invalid("order_by", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "order_direction", query, &p.OrderDirection); err != nil {
		return specification.Page{}, invalid("order_direction", err)
	}

	if p.Limit != nil && *p.Limit < 0 {
		return specification.Page{}, invalid("limit", fmt.Errorf("must be >= 0"))
	}
	if p.Offset != nil && *p.Offset < 0 {
		return specification.Page{}, invalid("offset", fmt.Errorf("must be >= 0"))
	}
	if p.OrderDirection != nil && *p.OrderDirection != string(specification.Asc) && *p.OrderDirection != string(specification.Desc) {
		return specification.Page{}, invalid("order_direction", fmt.Errorf("must be asc or desc"))
	}
	return p.Page(), nil
}

// ReductionID 绑定可选的 reduction_id 查询参数
func ReductionID(r *http.Request) (*int64, error) {
	var id *int64
	if err := runtime.BindQueryParameter("form", true, false, "reduction_id", r.URL.Query(), &id); err != nil {
		return nil, invalid("reduction_id", err)
	}
	return id, nil
}

// PathInt64 绑定整数路径参数
func PathInt64(r *http.Request, name string) (int64, error) {
	var v int64
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &v,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return 0, invalid(name, err)
	}
	return v, nil
}

// PathString 返回字符串路径参数
func PathString(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &v,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return "", invalid(name, err)
	}
	return v, nil
}

func invalid(name string, err error) error {
	return fmt.Errorf("%s: %v: %w", name, err, ErrInvalidParameter)
}
