package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/mdlayher/vsock"
)

// Listen 根据地址前缀选择传输：unix://path、vsock://port（enclave 内部署）或默认 tcp。
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	switch {
	case strings.HasPrefix(addr, "unix://"):
		return listenUnix(ctx, strings.TrimPrefix(addr, "unix://"))
	case strings.HasPrefix(addr, "unix:"):
		return listenUnix(ctx, strings.TrimPrefix(addr, "unix:"))
	case strings.HasPrefix(addr, "vsock://"):
		return listenVsock(strings.TrimPrefix(addr, "vsock://"))
	case strings.HasPrefix(addr, "vsock:"):
		return listenVsock(strings.TrimPrefix(addr, "vsock:"))
	default:
		return (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	}
}

func listenUnix(ctx context.Context, path string) (net.Listener, error) {
	if path == "" {
		return nil, errors.New("unix listener path is empty")
	}
	info, err := os.Lstat(path)
	switch {
	case err == nil && info.Mode()&os.ModeSocket == 0:
		return nil, fmt.Errorf("unix listener path %s exists and is not a socket", path)
	case err == nil:
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("stat unix listener path: %w", err)
	}
	return (&net.ListenConfig{}).Listen(ctx, "unix", path)
}

func listenVsock(target string) (net.Listener, error) {
	port, err := ParseVsockPort(target)
	if err != nil {
		return nil, err
	}
	lis, err := vsock.Listen(port, nil)
	if err != nil {
		return nil, fmt.Errorf("listen vsock port %d: %w", port, err)
	}
	return lis, nil
}

// ParseVsockPort 接受 "port" 或 "cid:port"，监听端只使用 port。
func ParseVsockPort(target string) (uint32, error) {
	portPart := target
	if _, after, found := strings.Cut(target, ":"); found {
		portPart = after
	}
	port, err := strconv.ParseUint(portPart, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid vsock port: %w", err)
	}
	return uint32(port), nil
}
