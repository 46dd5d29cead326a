package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/weatherdash/internal/dataset"
	"github.com/chrissnell/weatherdash/internal/figures"
	"github.com/chrissnell/weatherdash/internal/log"
	"github.com/chrissnell/weatherdash/internal/selection"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
)

// Config holds the REST server settings
type Config struct {
	ListenAddr string
}

// Controller represents the REST server controller
type Controller struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	config      Config
	Server      http.Server
	stations    *dataset.StationSet
	figures     *figures.Builder
	coordinator *selection.Coordinator
	logger      *zap.SugaredLogger
	handlers    *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc Config, stations *dataset.StationSet, builder *figures.Builder, coordinator *selection.Coordinator, logger *zap.SugaredLogger) (*Controller, error) {
	if builder == nil || coordinator == nil || stations == nil {
		return nil, fmt.Errorf("REST server needs a station set, a figure builder and a selection coordinator")
	}

	ctrl := &Controller{
		ctx:         ctx,
		wg:          wg,
		config:      rc,
		stations:    stations,
		figures:     builder,
		coordinator: coordinator,
		logger:      logger,
	}

	// If a listen address was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("listen address not provided; defaulting to 0.0.0.0:8050")
		ctrl.config.ListenAddr = "0.0.0.0:8050"
	}

	// Create handlers
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = ctrl.config.ListenAddr
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server on %s...", c.config.ListenAddr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// Handler returns the full middleware chain around the router
func (c *Controller) Handler() http.Handler {
	return c.requestIDMiddleware(c.accessLogMiddleware(gzhttp.GzipHandler(c.setupRouter())))
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/controls", c.handlers.GetControls).Methods(http.MethodGet)
	router.HandleFunc("/selection", c.handlers.GetSelection).Methods(http.MethodGet)
	router.HandleFunc("/selection/{field:quantity|time|model|station}", c.handlers.PutSelection).Methods(http.MethodPut)
	router.HandleFunc("/contour", c.handlers.GetContour).Methods(http.MethodGet)
	router.HandleFunc("/series", c.handlers.GetSeries).Methods(http.MethodGet)
	router.HandleFunc("/stations/nearest", c.handlers.GetNearestStation).Methods(http.MethodGet)

	return router
}
