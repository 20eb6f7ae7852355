package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/metering/internal/config"
	eventdomain "github.com/railzwaylabs/metering/internal/event/domain"
	featuredomain "github.com/railzwaylabs/metering/internal/feature/domain"
	meterdomain "github.com/railzwaylabs/metering/internal/meter/domain"
	subjectdomain "github.com/railzwaylabs/metering/internal/subject/domain"
	usagedomain "github.com/railzwaylabs/metering/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	DB         *gorm.DB
	Config     config.Config
	Registry   *prometheus.Registry
	MeterSvc   meterdomain.Service
	SubjectSvc subjectdomain.Service
	FeatureSvc featuredomain.Service
	EventSvc   eventdomain.Service
	UsageSvc   usagedomain.Service
}

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	db         *gorm.DB
	cfg        config.HTTPConfig
	registry   *prometheus.Registry
	meterSvc   meterdomain.Service
	subjectSvc subjectdomain.Service
	featureSvc featuredomain.Service
	eventSvc   eventdomain.Service
	usageSvc   usagedomain.Service
}

func NewServer(p Params) *Server {
	if p.Config.HTTP.Mode != "" {
		gin.SetMode(p.Config.HTTP.Mode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		engine:     engine,
		log:        p.Log.Named("server"),
		db:         p.DB,
		cfg:        p.Config.HTTP,
		registry:   p.Registry,
		meterSvc:   p.MeterSvc,
		subjectSvc: p.SubjectSvc,
		featureSvc: p.FeatureSvc,
		eventSvc:   p.EventSvc,
		usageSvc:   p.UsageSvc,
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.Use(s.RequestID(), s.RequestLogger())

	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/ready", s.Ready)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1", s.NamespaceRequired())
	{
		v1.POST("/events", s.IngestEvent)
		v1.POST("/events/batch", s.IngestEventBatch)
		v1.GET("/events", s.ListEvents)

		v1.GET("/usage/query", s.QueryUsage)
		v1.GET("/usage/report", s.GetUsageReport)

		v1.POST("/meters", s.CreateMeter)
		v1.GET("/meters", s.ListMeters)
		v1.GET("/meters/:id", s.GetMeter)
		v1.PATCH("/meters/:id", s.UpdateMeter)
		v1.DELETE("/meters/:id", s.DeleteMeter)

		v1.POST("/subjects", s.CreateSubject)
		v1.GET("/subjects", s.ListSubjects)
		v1.GET("/subjects/:id", s.GetSubject)
		v1.PATCH("/subjects/:id", s.UpdateSubject)
		v1.DELETE("/subjects/:id", s.DeleteSubject)

		v1.POST("/features", s.CreateFeature)
		v1.GET("/features", s.ListFeatures)
		v1.GET("/features/:id", s.GetFeature)
		v1.PATCH("/features/:id", s.UpdateFeature)
		v1.DELETE("/features/:id", s.DeleteFeature)
	}
}

func RunHTTP(lc fx.Lifecycle, s *Server) {
	s.RegisterRoutes()

	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.log.Info("http server starting", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)
