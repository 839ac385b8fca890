package http_wrappers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/runboard/runboard/internal/executioncontext"
	"github.com/runboard/runboard/internal/logging"
	"github.com/runboard/runboard/internal/messages"
	"github.com/runboard/runboard/internal/serviceerrors"
)

// ReqWrapper adapts *http.Request to the RequestWrapper interface.
type ReqWrapper struct {
	Request *http.Request
}

func NewRequestWrapper(r *http.Request) *ReqWrapper {
	return &ReqWrapper{Request: r}
}

func (r *ReqWrapper) Method() string {
	return r.Request.Method
}

func (r *ReqWrapper) URI() string {
	if r.Request.URL != nil {
		return r.Request.URL.RequestURI()
	}
	return r.Request.RequestURI
}

func (r *ReqWrapper) Header(key string) string {
	return r.Request.Header.Get(key)
}

func (r *ReqWrapper) Path() string {
	if r.Request.URL != nil {
		return r.Request.URL.Path
	}
	return ""
}

func (r *ReqWrapper) Query(key string) []string {
	return r.Request.URL.Query()[key]
}

// RespWrapper adapts http.ResponseWriter to the ResponseWrapper interface.
// Error responses are always JSON with the request id as the trace field.
type RespWrapper struct {
	writer http.ResponseWriter
	ctx    *executioncontext.ExecutionContext
}

func NewRespWrapper(w http.ResponseWriter, ctx *executioncontext.ExecutionContext) *RespWrapper {
	return &RespWrapper{
		writer: w,
		ctx:    ctx,
	}
}

func (r *RespWrapper) SetHeader(key string, value string) {
	r.writer.Header().Set(key, value)
}

func (r *RespWrapper) SetStatusCode(code int) {
	r.writer.WriteHeader(code)
}

func (r *RespWrapper) Write(buf []byte) (n int, err error) {
	return r.writer.Write(buf)
}

func (r *RespWrapper) WriteJSON(v any, code int) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		r.ErrorWithMessageCode(r.ctx.RequestID, messages.SerializationFailed,
			"Type", fmt.Sprintf("%T", v), "Error", err.Error())
		return
	}
	r.SetHeader("Content-Type", "application/json; charset=utf-8")
	r.writer.WriteHeader(code)
	_, _ = r.writer.Write(jsonBytes)

	if r.ctx.Logger != nil && r.ctx.Ctx != nil {
		logging.LogRequestSuccess(r.ctx, code)
	}
}

func (r *RespWrapper) Error(err error, requestId string) {
	se := serviceerrors.FromError(err)
	r.ErrorWithMessageCode(requestId, se.MessageCode(), se.MessageParams()...)
}

func (r *RespWrapper) ErrorWithMessageCode(requestId string, messageCode *messages.MessageCode, messageParams ...any) {
	msg := messages.GetErrorMessage(messageCode, messageParams...)
	code := messageCode.GetCode()

	header := r.writer.Header()
	header.Del("Content-Length")
	header.Set("Content-Type", "application/json; charset=utf-8")
	header.Set("X-Content-Type-Options", "nosniff")
	r.writer.WriteHeader(code)
	fmt.Fprintf(r.writer, "{\"error\":%q,\"code\":%d,\"trace\":%q}\n", msg, code, requestId)

	if r.ctx.Logger != nil && r.ctx.Ctx != nil {
		logging.LogRequestFailed(r.ctx, code, msg)
	}
}
