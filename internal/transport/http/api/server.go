package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wheelhouse/internal/logger"
	"wheelhouse/internal/store/gormstore"
	"wheelhouse/internal/store/runlog"
)

// Server 提供只读查询服务（裁决/持仓/告警）。写路径全部走评估轮，
// 不暴露任何变更接口。
type Server struct {
	addr   string
	router *gin.Engine
	srv    *http.Server
}

// ServerConfig 描述 HTTP 服务依赖。Runs 可为 nil（轮次日志未开启）。
type ServerConfig struct {
	Addr  string
	Store *gormstore.GormStore
	Runs  *runlog.Store
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("api http server requires a store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apiRouter := NewRouter(cfg.Store, cfg.Runs)
	apiRouter.Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Start 阻塞运行直到 ctx 取消。
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestLogger 记录接口调用，便于追踪外部查询。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http: %s %s status=%d latency=%s client=%s",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Truncate(time.Millisecond),
			c.ClientIP(),
		)
	}
}
