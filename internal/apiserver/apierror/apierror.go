// Package apierror 领域错误到 HTTP 响应的映射
//
// 状态码由 errhttp.ToHTTP 按 errdefs 分类得出，响应体统一为 {"message": "..."}。
// 5xx 错误不向客户端暴露内部信息。
package apierror

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/containerd/errdefs"
	"github.com/containerd/errdefs/pkg/errhttp"

	"ir-api/internal/script/acquisition"
)

// 响应消息
const (
	MsgNotFound       = "Resource not found"
	MsgMissingScript  = "The script could not be found locally or on remote, it is likely the script does not exist"
	MsgUnsafePath     = "The given request contains bad characters"
	MsgInternalServer = "Internal server error"
)

// Body 错误响应体
type Body struct {
	Message string `json:"message"`
}

// Status 返回错误对应的 HTTP 状态码
func Status(err error) int {
	return errhttp.ToHTTP(err)
}

// Message 返回错误对应的响应消息
func Message(err error) string {
	switch {
	case errors.Is(err, acquisition.ErrUnsafePath):
		return MsgUnsafePath
	case errors.Is(err, acquisition.ErrMissingScript):
		return MsgMissingScript
	case errdefs.IsNotFound(err):
		return MsgNotFound
	case Status(err) >= http.StatusInternalServerError:
		return MsgInternalServer
	default:
		return err.Error()
	}
}

// Write 写入错误响应
func Write(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	WriteMessage(w, status, Message(err))
}

// WriteMessage 写入指定状态码和消息的错误响应
func WriteMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Body{Message: message})
}
