package proxy

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/elazarl/goproxy"
	"github.com/rs/zerolog"
)

// LocalForwarder 在 127.0.0.1 上监听一个无认证的本地代理,转发到带认证的上游代理
// 浏览器不支持在代理地址里带用户名密码,所以需要这一层
type LocalForwarder struct {
	mu      sync.Mutex
	servers map[string]*http.Server
	logger  zerolog.Logger
}

func NewLocalForwarder(logger zerolog.Logger) *LocalForwarder {
	return &LocalForwarder{
		servers: make(map[string]*http.Server),
		logger:  logger.With().Str("component", "proxy_forwarder").Logger(),
	}
}

func (f *LocalForwarder) Anonymize(ctx context.Context, raw string) (string, error) {
	upstream, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse proxy %q: %w", redact(raw), err)
	}
	if upstream.Host == "" {
		return "", fmt.Errorf("proxy %q has no host", redact(raw))
	}
	// 无认证的上游本身就是"匿名"的,直接使用
	if upstream.User == nil {
		return raw, nil
	}

	password, _ := upstream.User.Password()
	authHeader := "Basic " + base64.StdEncoding.EncodeToString([]byte(upstream.User.Username()+":"+password))
	bare := *upstream
	bare.User = nil

	gp := goproxy.NewProxyHttpServer()
	gp.Verbose = false
	// 普通 HTTP 请求: http.Transport 会根据 URL 中的用户信息加上 Proxy-Authorization
	gp.Tr = &http.Transport{
		Proxy:                 http.ProxyURL(upstream),
		ResponseHeaderTimeout: 60 * time.Second,
		IdleConnTimeout:       90 * time.Second,
	}
	// HTTPS 隧道: CONNECT 请求需要手动加认证头
	gp.ConnectDial = gp.NewConnectDialToProxyWithHandler(bare.String(), func(req *http.Request) {
		req.Header.Set("Proxy-Authorization", authHeader)
	})
	if gp.ConnectDial == nil {
		return "", fmt.Errorf("unsupported proxy scheme %q", upstream.Scheme)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen for local forwarder: %w", err)
	}
	srv := &http.Server{Handler: gp, ReadHeaderTimeout: 30 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error().Err(err).Str("addr", ln.Addr().String()).Msg("local forwarder stopped")
		}
	}()

	anonymized := "http://" + ln.Addr().String()
	f.mu.Lock()
	f.servers[anonymized] = srv
	f.mu.Unlock()
	f.logger.Debug().Str("upstream", bare.Host).Str("local", anonymized).Msg("local forwarder started")
	return anonymized, nil
}

func (f *LocalForwarder) Close(anonymized string) error {
	f.mu.Lock()
	srv, ok := f.servers[anonymized]
	delete(f.servers, anonymized)
	f.mu.Unlock()
	if !ok {
		return nil
	}
	return srv.Close()
}

// CloseAll 关闭所有本地转发器
func (f *LocalForwarder) CloseAll() {
	f.mu.Lock()
	servers := f.servers
	f.servers = make(map[string]*http.Server)
	f.mu.Unlock()
	for _, srv := range servers {
		_ = srv.Close()
	}
}

// redact 日志中隐藏代理密码
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
