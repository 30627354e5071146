package api

import (
	"encoding/json"
	"net/http"

	xerrors "storefront/internal/errors"
	"storefront/pkg/logger"
)

type errorBody struct {
	Code    xerrors.Code      `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Named("api").Warn("写入响应失败", "error", err)
	}
}

// writeError 将统一错误转换为 {"error":{...}}，状态码取自错误码注册表。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := xerrors.StatusOf(err)
	body := errorBody{Code: xerrors.CodeOf(err), Message: err.Error()}
	if e, ok := xerrors.From(err); ok {
		body.Message = e.Message()
		body.Fields = e.Metadata()
	}

	log := logger.Named("api")
	attrs := []any{"method", r.Method, "path", r.URL.Path, "status", status, "code", body.Code, "error", err.Error()}
	switch xerrors.SeverityOf(err) {
	case xerrors.SeverityCritical:
		log.Error("request_failed", attrs...)
	case xerrors.SeverityWarning:
		log.Warn("request_failed", attrs...)
	default:
		log.Debug("request_failed", attrs...)
	}
	if status >= http.StatusInternalServerError && body.Code == xerrors.CodeUnknown {
		body.Message = "internal error"
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败")
	}
	return nil
}
