package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	allocationdomain "github.com/smallbiznis/stockroute/internal/allocation/domain"
	businessdomain "github.com/smallbiznis/stockroute/internal/business/domain"
	catalogdomain "github.com/smallbiznis/stockroute/internal/catalog/domain"
	"github.com/smallbiznis/stockroute/internal/config"
	fulfillmentdomain "github.com/smallbiznis/stockroute/internal/fulfillment/domain"
	historydomain "github.com/smallbiznis/stockroute/internal/history/domain"
	"github.com/smallbiznis/stockroute/internal/observability"
	obsmiddleware "github.com/smallbiznis/stockroute/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stockroute/internal/observability/metrics"
	obstracing "github.com/smallbiznis/stockroute/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/stockroute/internal/order/domain"
	stockdomain "github.com/smallbiznis/stockroute/internal/stock/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(noRoute)

	return r
}

type engineParams struct {
	fx.In

	ObsCfg      observability.Config
	Log         *zap.Logger
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func registerGin(p engineParams) *gin.Engine {
	if !p.ObsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(p.ObsCfg, p.Log, p.HTTPMetrics)
}

func run(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	log = log.Named("http.server")
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server failed", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	businessSvc    businessdomain.Service
	catalogSvc     catalogdomain.Service
	orderSvc       orderdomain.Service
	historySvc     historydomain.Service
	stockSvc       stockdomain.Service
	allocationSvc  allocationdomain.Service
	fulfillmentSvc fulfillmentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	BusinessSvc    businessdomain.Service
	CatalogSvc     catalogdomain.Service
	OrderSvc       orderdomain.Service
	HistorySvc     historydomain.Service
	StockSvc       stockdomain.Service
	AllocationSvc  allocationdomain.Service
	FulfillmentSvc fulfillmentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		businessSvc:    p.BusinessSvc,
		catalogSvc:     p.CatalogSvc,
		orderSvc:       p.OrderSvc,
		historySvc:     p.HistorySvc,
		stockSvc:       p.StockSvc,
		allocationSvc:  p.AllocationSvc,
		fulfillmentSvc: p.FulfillmentSvc,
	}

	svc.registerBusinessRoutes()
	svc.registerProductRoutes()
	svc.registerOrderRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerBusinessRoutes() {
	businesses := s.engine.Group("/businesses")

	businesses.GET("", s.ListBusinesses)
	businesses.POST("", s.CreateBusiness)
	businesses.GET("/:name", s.GetBusiness)
	businesses.DELETE("/:name", s.DeleteBusiness)
	businesses.PATCH("/:name/service", s.SetBusinessServiceStatus)
	businesses.GET("/:name/types", s.ListBusinessTypes)
	businesses.GET("/:name/types/:types/expand", s.ExpandBusinessTypes)
	businesses.GET("/:name/statistics", s.GetBusinessStatistics)
	businesses.POST("/:name/products", s.IntakeProduct)
}

func (s *Server) registerProductRoutes() {
	s.engine.GET("/products/lookups", s.GetProductLookups)
	s.engine.GET("/products/:serial", s.GetProduct)
	s.engine.DELETE("/products/:serial", s.RemoveProduct)
	s.engine.POST("/products/condition", s.SetUnitCondition)
	s.engine.POST("/products/state", s.ChangeUnitState)
	s.engine.PUT("/critical-levels", s.SetCriticalLevel)
	s.engine.POST("/reservations/release", s.ReleaseUnits)
}

func (s *Server) registerOrderRoutes() {
	orders := s.engine.Group("/orders")

	orders.GET("", s.ListOrders)
	orders.POST("", s.CreateOrder)
	orders.GET("/:id", s.GetOrder)
	orders.DELETE("/:id", s.DeleteOrder)
	orders.GET("/:id/sides", s.GetOrderSides)
	orders.PUT("/:id/items", s.ReplaceOrderItems)
	orders.GET("/:id/plan", s.GetOrderPlan)
	orders.POST("/:id/reservations", s.ReserveUnits)
	orders.PUT("/:id/reservations", s.RebindUnits)
	orders.DELETE("/:id/reservations", s.ReleaseOrderReservations)
	orders.POST("/:id/complete", s.CompleteOrder)
	orders.GET("/:id/history", s.GetOrderHistory)
}
