package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docvault/internal/logging"
)

const (
	RouteAPI = "/api"

	RouteDocuments       = RouteAPI + "/documents"
	RouteDocument        = RouteDocuments + "/:id"
	RouteDocumentsShared = RouteDocuments + "/shared"
	RouteDownload        = RouteDocument + "/download"
	RouteDocumentShares  = RouteDocument + "/shares"
	RouteShare           = RouteAPI + "/shares/:id"

	// ops
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

const shutdownTimeout = 5 * time.Second

// Server wraps the gin engine in an http.Server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

func NewServer(addr string, logger logging.Logger, controller *VaultController, jwtSecret []byte) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	registerRoutes(r, controller, jwtSecret)

	return &Server{
		srv:    &http.Server{Addr: addr, Handler: r},
		logger: logger.With("module", "http_server"),
	}
}

func registerRoutes(r *gin.Engine, vc *VaultController, jwtSecret []byte) {
	r.GET(RouteHealth, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET(RouteMetrics, gin.WrapH(promhttp.Handler()))

	authorized := r.Group("", AuthMiddleware(jwtSecret))
	authorized.POST(RouteDocuments, vc.UploadHandler)
	authorized.GET(RouteDocuments, vc.ListHandler)
	// the static "shared" segment takes precedence over the :id parameter
	authorized.GET(RouteDocumentsShared, vc.ListSharedHandler)
	authorized.GET(RouteDownload, vc.DownloadHandler)
	authorized.DELETE(RouteDocument, vc.DeleteHandler)
	authorized.POST(RouteDocumentShares, vc.GrantHandler)
	authorized.DELETE(RouteShare, vc.RevokeHandler)
}

// Run serves until ctx is cancelled, then drains connections for up to
// shutdownTimeout before returning.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
