package solanaapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aegis-sign/solana-api/pkg/apierrors"
	"github.com/xeipuuv/gojsonschema"
)

const defaultMaxBodyBytes = 2 << 20

// Options 配置 HTTPHandler。
type Options struct {
	Logger  *slog.Logger
	Metrics *Metrics
	// TransferDecimals 是 /send/token 未携带 decimals 时使用的默认值。
	TransferDecimals uint8
	MaxBodyBytes     int64
}

func (o *Options) normalize() Options {
	opts := *o
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return opts
}

// HTTPHandler 实现 keypair / message / send / token 七个 HTTP/JSON 接口。
type HTTPHandler struct {
	logger           *slog.Logger
	metrics          *Metrics
	transferDecimals uint8
	maxBodyBytes     int64
}

// NewHTTPHandler 构造 HTTP handler。
func NewHTTPHandler(opts Options) *HTTPHandler {
	normalized := opts.normalize()
	return &HTTPHandler{
		logger:           normalized.Logger,
		metrics:          normalized.Metrics,
		transferDecimals: normalized.TransferDecimals,
		maxBodyBytes:     normalized.MaxBodyBytes,
	}
}

// Register 将 handler 注册到 mux；未注册路径由 mux 返回 404。
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	routes := []struct {
		path    string
		handler http.HandlerFunc
	}{
		{"/keypair", h.handleKeypair},
		{"/token/create", h.handleCreateToken},
		{"/token/mint", h.handleMintToken},
		{"/message/sign", h.handleSign},
		{"/message/verify", h.handleVerify},
		{"/send/sol", h.handleSendSol},
		{"/send/token", h.handleSendToken},
	}
	for _, route := range routes {
		mux.Handle(http.MethodPost+" "+route.path, h.instrument(route.path, route.handler))
	}
}

// decodeBody 读取受限大小的 body，先做 schema 形状校验再反序列化到 dst。
func (h *HTTPHandler) decodeBody(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) *apierrors.Error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierrors.Newf(apierrors.CodeInvalidArgument, "Request body exceeds %d bytes", tooLarge.Limit)
		}
		return apierrors.New(apierrors.CodeInvalidArgument, "Failed to read request body").WithCause(err)
	}
	if apiErr := validateShape(schema, data); apiErr != nil {
		return apiErr
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// schema 的 integer 接受 1.0 和超出 uint64 的整数，需在解码阶段按字段报告。
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apierrors.Newf(apierrors.CodeInvalidArgument, "Invalid request body: %s: expected %s", typeErr.Field, typeErr.Type).WithCause(err)
		}
		return apierrors.New(apierrors.CodeInvalidArgument, "Invalid JSON body").WithCause(err)
	}
	return nil
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *HTTPHandler) writeOK(w http.ResponseWriter, payload any) {
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *HTTPHandler) writeUnknownError(w http.ResponseWriter, err error) {
	if apiErr, ok := apierrors.FromError(err); ok {
		h.writeAPIError(w, apiErr)
		return
	}
	h.writeAPIError(w, apierrors.New(apierrors.CodeInternal, "internal error").WithCause(err))
}

func (h *HTTPHandler) writeAPIError(w http.ResponseWriter, apiErr *apierrors.Error) {
	if apiErr == nil {
		apiErr = apierrors.New(apierrors.CodeInternal, "internal error")
	}
	if rec, ok := w.(*responseRecorder); ok {
		rec.err = apiErr
	}
	h.writeJSON(w, apierrors.HTTPStatus(apiErr.Code), Fail(apiErr.Error()))
}
