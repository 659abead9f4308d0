package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/taskmaster/internal/auth"
	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/http/handlers"
	"github.com/geocoder89/taskmaster/internal/http/middlewares"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// Tokens verifies and revokes bearer tokens; *auth.TokenService implements it.
type Tokens interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
	Revoke(ctx context.Context, token string) error
}

type Deps struct {
	Log  *slog.Logger
	Env  string
	Prom *observability.Prom
	// Metrics serves /metrics; nil disables the route.
	Metrics http.Handler

	Tokens  Tokens
	Creds   handlers.Credentials
	Users   handlers.UserFinder
	Orgs    handlers.OrgStore
	Teams   handlers.TeamStore
	Bugs    handlers.BugStore
	Deleter handlers.HierarchyDeleter

	AuthLimiter        *middlewares.RateLimiter
	CORSAllowedOrigins []string
	Checks             map[string]handlers.Pinger
	AuthTimeout        time.Duration
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" && d.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("taskmaster"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders(d.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	if d.Users != nil {
		authMW.WithUserLookup(d.Users)
	}
	requireAuth := authMW.RequireAuth()

	authHandler := handlers.NewAuthHandler(d.Creds, d.Tokens, d.Users, d.Log, d.AuthTimeout)
	usersHandler := handlers.NewUsersHandler(d.Deleter, d.Tokens, d.Log)
	orgsHandler := handlers.NewOrgsHandler(d.Orgs, d.Teams, d.Deleter)
	teamsHandler := handlers.NewTeamsHandler(d.Teams, d.Orgs, d.Deleter)
	bugsHandler := handlers.NewBugsHandler(d.Bugs, d.Teams, d.Orgs)

	// auth
	authGroup := r.Group("/auth")
	{
		public := authGroup.Group("")
		if d.AuthLimiter != nil {
			public.Use(d.AuthLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
		}
		public.POST("/signup", authHandler.SignUp)
		public.POST("/login", authHandler.Login)

		authGroup.POST("/logout", requireAuth, authHandler.Logout)
		authGroup.GET("/me", requireAuth, authHandler.Me)
	}

	api := r.Group("", requireAuth)

	deleteMe := []gin.HandlerFunc{usersHandler.DeleteMe}
	if d.AuthLimiter != nil {
		deleteMe = append([]gin.HandlerFunc{d.AuthLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP)}, deleteMe...)
	}
	api.DELETE("/users/me", deleteMe...)

	// organizations
	api.POST("/orgs", orgsHandler.Create)
	api.GET("/orgs", orgsHandler.ListMine)
	member := middlewares.RequireOrgRole(d.Orgs, "orgId", "")
	admin := middlewares.RequireOrgRole(d.Orgs, "orgId", organization.RoleAdmin)
	api.GET("/orgs/:orgId/members", member, orgsHandler.ListMembers)
	api.POST("/orgs/:orgId/members", admin, orgsHandler.AddMember)
	api.POST("/orgs/:orgId/teams", admin, orgsHandler.CreateTeam)
	api.DELETE("/orgs/:orgId", admin, orgsHandler.Delete)

	// teams
	api.GET("/teams", teamsHandler.ListMine)
	api.GET("/teams/:teamId", teamsHandler.Get)
	api.POST("/teams/:teamId/members", teamsHandler.AddMember)
	api.DELETE("/teams/:teamId", teamsHandler.Delete)
	api.POST("/teams/:teamId/bugs", bugsHandler.Create)
	api.GET("/teams/:teamId/bugs", bugsHandler.ListByTeam)

	// bugs
	api.GET("/bugs/:bugId", bugsHandler.Get)
	api.PUT("/bugs/:bugId/assignee", bugsHandler.Assign)
	api.PUT("/bugs/:bugId/status", bugsHandler.SetStatus)
	api.PUT("/bugs/:bugId/priority", bugsHandler.SetPriority)
	api.DELETE("/bugs/:bugId", bugsHandler.Delete)

	return r
}
