package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"startuppush/internal/auth"
	"startuppush/internal/db"
	"startuppush/internal/handlers"
	"startuppush/internal/middleware"
	"startuppush/internal/models"
	"startuppush/internal/services"
)

const sessionName = "startuppush_session"

type Deps struct {
	Services      *services.Services
	Store         db.Store
	Signer        *auth.Signer // nil 时只接受 session 登录
	SessionSecret string
	CORSOrigins   []string
}

// Setup 创建 gin engine 并挂好全部中间件与路由
func Setup(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestContext())
	r.Use(middleware.AccessLog())

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore([]byte(d.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(d.Store, d.Signer))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	voteHandler := handlers.NewVoteHandler(d.Services)
	commentHandler := handlers.NewCommentHandler(d.Services)
	productHandler := handlers.NewProductHandler(d.Services)
	promotionHandler := handlers.NewPromotionHandler(d.Services)
	adminHandler := handlers.NewAdminHandler(d.Services)
	notificationHandler := handlers.NewNotificationHandler(d.Services)
	userHandler := handlers.NewUserHandler(d.Services)
	healthHandler := handlers.NewHealthHandler(d.Store)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	// 公共路由
	api.GET("/health", healthHandler.Health)
	api.GET("/products", productHandler.List)                     // 排行 / 最新
	api.GET("/products/:id", productHandler.Detail)               // 产品详情
	api.GET("/products/:id/comments", commentHandler.List)        // 评论列表
	api.GET("/comments/:id", commentHandler.Get)                  // 单条评论
	api.GET("/promotions", promotionHandler.Active)               // 当前推广
	api.GET("/boost-availability", promotionHandler.Availability) // 本月名额与折扣

	// 需要登录
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", userHandler.Me)
		authorized.GET("/points", userHandler.Points)

		authorized.POST("/products", productHandler.Create)
		authorized.PATCH("/products/:id", productHandler.Update)
		authorized.DELETE("/products/:id", productHandler.Delete)
		authorized.POST("/products/:id/follow", productHandler.Follow)
		authorized.DELETE("/products/:id/follow", productHandler.Unfollow)
		authorized.POST("/products/:id/share", productHandler.Share)

		authorized.POST("/votes", voteHandler.Vote)
		authorized.POST("/comments", commentHandler.Create)
		authorized.POST("/promotions", promotionHandler.Create)
		authorized.POST("/reports", userHandler.Report)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	// 管理员
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.PATCH("/products/:id", adminHandler.Moderate(models.ResourceProduct))
		admin.PATCH("/comments/:id", adminHandler.Moderate(models.ResourceComment))
		admin.PATCH("/users/:id", adminHandler.SetUserStatus)
	}
}
