package solanaapi

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName 是 gRPC health 中登记的服务名。
const ServiceName = "solana.api.v1.SolanaAPI"

// HealthServer 包装标准 gRPC health 服务，供编排系统探活。
type HealthServer struct {
	srv *health.Server
}

// RegisterHealth 在 gRPC server 上注册 health 服务，初始状态为 SERVING。
func RegisterHealth(grpcSrv *grpc.Server) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, hs)
	return &HealthServer{srv: hs}
}

// Shutdown 将所有服务标记为 NOT_SERVING，之后的状态更新将被忽略。
func (h *HealthServer) Shutdown() {
	if h == nil {
		return
	}
	h.srv.Shutdown()
}
