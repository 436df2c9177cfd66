// Package api 内嵌的 OpenAPI 文档
package api

import _ "embed"

// OpenAPIYAML ir-api 的 OpenAPI 文档，用于请求校验和 /openapi.yaml
//
//go:embed openapi/ir-api.yaml
var OpenAPIYAML []byte
