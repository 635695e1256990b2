package api

import (
	"net"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/uxfolio/portfolio-cms/docs"
	"github.com/uxfolio/portfolio-cms/internal/api/handler"
	"github.com/uxfolio/portfolio-cms/internal/api/middleware"
	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

const (
	requestTimeout = 15 * time.Second
	bodyLimit      = "1M"
)

// Deps are the services and settings the router wires into handlers.
type Deps struct {
	Auth        ports.AuthService
	Content     ports.ContentService
	Contact     ports.ContactService
	Health      map[string]handler.Pinger
	Cookie      handler.CookieConfig
	CORSOrigins []string
	// TrustedProxies lists the CIDRs whose X-Forwarded-For header is believed
	// when resolving the client address. Empty means the peer address is used.
	TrustedProxies []string
	Log            zerolog.Logger
	// Registry receives the HTTP metrics; nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)
	e.IPExtractor = ipExtractor(d.TrustedProxies, d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portfolio",
		Registerer: registerer,
	}))
	e.Use(echomiddleware.CORSWithConfig(corsConfig(d.CORSOrigins)))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echomiddleware.ContextTimeout(requestTimeout))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Cookie)
	contentHandler := handler.NewContentHandler(d.Content)
	contactHandler := handler.NewContactHandler(d.Contact, d.Content)
	activityHandler := handler.NewActivityHandler(d.Content)
	healthHandler := handler.NewHealthHandler(d.Health, d.Log)
	authMiddleware := middleware.Auth(d.Auth, d.Cookie.Name)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Health probes (no auth required) ---
	e.GET("/api/health", healthHandler.Liveness)
	e.GET("/api/health/ready", healthHandler.Readiness)

	// --- Public routes ---
	e.POST("/api/contact", contactHandler.Submit)
	e.POST("/api/admin/login", authHandler.Login)
	e.POST("/api/admin/logout", authHandler.Logout)
	e.GET("/api/:entity", contentHandler.PublicList)

	// --- Admin routes ---
	admin := e.Group("/api/admin", authMiddleware)
	admin.GET("/me", authHandler.Me)
	admin.PUT("/credentials", authHandler.ChangeCredentials, adminOnly)
	admin.GET("/activity", activityHandler.List, adminOnly)

	admin.GET("/contact", contactHandler.List)
	admin.GET("/contact/:id", contactHandler.Get)
	admin.PATCH("/contact/:id/status", contactHandler.UpdateStatus)
	admin.DELETE("/contact/:id", contactHandler.Delete)

	admin.GET("/:entity", contentHandler.List)
	admin.POST("/:entity", contentHandler.Create)
	admin.POST("/:entity/reorder", contentHandler.Reorder)
	admin.POST("/:entity/compact", contentHandler.Compact)
	admin.GET("/:entity/:id", contentHandler.Get)
	admin.PUT("/:entity/:id", contentHandler.Update)
	admin.DELETE("/:entity/:id", contentHandler.Delete)

	return e
}

// ipExtractor resolves the client address used to key the contact rate
// limit. Client-supplied forwarding headers are ignored unless the peer is
// a configured proxy.
func ipExtractor(proxies []string, log zerolog.Logger) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range proxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			log.Warn().Str("cidr", cidr).Msg("ignoring invalid trusted proxy range")
			continue
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func corsConfig(origins []string) echomiddleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE"},
	}
}

// requestLogger writes one zerolog event per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
