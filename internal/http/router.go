package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/homeops/internal/config"
	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/http/handlers"
	"github.com/geocoder89/homeops/internal/http/middlewares"
	"github.com/geocoder89/homeops/internal/live"
	"github.com/geocoder89/homeops/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Config config.Config
	Logger *slog.Logger

	Gate        middlewares.Authorizer
	Credentials interface {
		handlers.CredentialService
		handlers.CredentialAdmin
	}
	Users interface {
		handlers.UserService
		handlers.StaffDirectory
	}
	Broker live.Broker

	// Optional.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Checks   []handlers.Check
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("homeops-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Logger))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware("/api/live"))
	}

	health := handlers.NewHealthHandler(d.Checks...)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	authn := middlewares.NewAuthMiddleware(d.Gate)
	authH := handlers.NewAuthHandler(d.Credentials, d.Users)
	usersH := handlers.NewUsersHandler(d.Users, d.Credentials)

	var onStream func(float64)
	if d.Prom != nil {
		onStream = d.Prom.LiveSubscribers.Add
	}
	liveH := handlers.NewLiveHandler(d.Broker, onStream)

	maxBody := d.Config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	api := r.Group("/api")
	api.Use(middlewares.MaxBodyBytes(maxBody), middlewares.RequireJSON())

	// public: the login screen and the shared PIN terminal
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/pin-request", authH.RequestPIN)
		authGroup.POST("/pin-verify", authH.VerifyPIN)
		authGroup.POST("/pin-set", authH.SetPIN)
		authGroup.GET("/staff", authH.Staff)
		authGroup.GET("/me", authn.Require(), authH.Me)
	}

	usersGroup := api.Group("/users", authn.Require())
	{
		usersGroup.GET("", usersH.List)
		usersGroup.GET("/:id", usersH.Get)
		usersGroup.PATCH("/:id", usersH.Update)
		usersGroup.PATCH("/:id/language", usersH.UpdateLanguage)
	}

	admin := api.Group("/users", authn.Require(user.RoleAdmin))
	{
		admin.POST("", usersH.Create)
		admin.DELETE("/:id", usersH.Delete)
		admin.POST("/:id/reset-pin", usersH.ResetPIN)
		admin.POST("/:id/reset-password", usersH.ResetPassword)
	}

	api.GET("/live", authn.Require(), liveH.Stream)

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return r
}
