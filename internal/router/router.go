package router

import (
	"log/slog"
	"net/http"
	"time"

	"fitcrush/config"
	"fitcrush/internal/handler"
	"fitcrush/internal/middleware"
	"fitcrush/internal/repository"
	"fitcrush/internal/service"
	"fitcrush/internal/ws"
	"fitcrush/pkg/cloudinary"
	"fitcrush/pkg/limits"
	"fitcrush/pkg/mail"
	"fitcrush/pkg/payment"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps are the external clients the API talks to. Zero values fall back to
// in-process or no-op implementations.
type Deps struct {
	Cloud    cloudinary.Client
	Counter  limits.Counter
	Limiter  middleware.Limiter
	Provider payment.Provider
	Mailer   mail.Sender
	Pusher   service.Pusher
	IDs      *snowflake.Node
	Hub      *ws.Hub
}

// App is the wired HTTP engine plus the services background workers need.
type App struct {
	Engine        *gin.Engine
	Hub           *ws.Hub
	Notifications *service.NotificationService
}

func (d *Deps) fill(cfg *config.Config) error {
	if d.Counter == nil {
		d.Counter = limits.NewMemoryCounter()
	}
	if d.Limiter == nil {
		d.Limiter = middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, time.Minute)
	}
	if d.Provider == nil {
		d.Provider = &payment.StubProvider{}
	}
	if d.Mailer == nil {
		d.Mailer = mail.LogSender{}
	}
	if d.Hub == nil {
		d.Hub = ws.NewHub()
	}
	if d.IDs == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return err
		}
		d.IDs = node
	}
	return nil
}

func Setup(cfg *config.Config, db *gorm.DB, deps Deps) (*App, error) {
	if err := deps.fill(cfg); err != nil {
		return nil, err
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.RateLimit(deps.Limiter))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	interestRepo := repository.NewInterestRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	feedRepo := repository.NewFeedRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	blockRepo := repository.NewBlockRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	referralRepo := repository.NewReferralRepository(db)

	// Services
	matchSvc := service.NewMatchService(interestRepo)
	crushSvc := service.NewCrushService(db, ledgerRepo, interestRepo, matchSvc, userRepo, blockRepo, outboxRepo)
	messageSvc := service.NewMessageService(db, messageRepo, matchSvc, userRepo, blockRepo, outboxRepo, deps.Counter, deps.Hub)
	ledgerSvc := service.NewLedgerService(ledgerRepo)
	billingSvc := service.NewBillingService(db, &cfg.Payment, deps.Provider, paymentRepo, ledgerRepo, userRepo, outboxRepo, auditRepo, deps.IDs)
	authSvc := service.NewAuthService(cfg, db, userRepo, ledgerRepo, referralRepo)
	referralSvc := service.NewReferralService(referralRepo, userRepo)
	if deps.Pusher == nil {
		slog.Info("push notifications disabled: set firebase.credentials_file to enable")
	}
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, deps.Pusher, deps.Mailer, deps.Hub)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditRepo)
	googleOAuthHandler := handler.NewGoogleOAuthHandler(cfg, authSvc, auditRepo)
	profileHandler := handler.NewProfileHandler(userRepo, photoRepo, blockRepo, matchSvc)
	photoHandler := handler.NewPhotoHandler(deps.Cloud, photoRepo, userRepo)
	feedHandler := handler.NewFeedHandler(feedRepo, userRepo)
	crushHandler := handler.NewCrushHandler(crushSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	billingHandler := handler.NewBillingHandler(billingSvc, ledgerSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)
	referralHandler := handler.NewReferralHandler(referralSvc)
	blockHandler := handler.NewBlockHandler(blockRepo, userRepo)
	reportHandler := handler.NewReportHandler(reportRepo, auditRepo)
	realtimeHandler := handler.NewRealtimeHandler(messageSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adultMw := middleware.AdultOnly(userRepo)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": deps.Hub.ClientCount()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", ws.Serve(&cfg.JWT, deps.Hub, realtimeHandler.HandleFrame))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", authMw, authHandler.Logout)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.GET("/google", googleOAuthHandler.Redirect)
			authGroup.GET("/google/callback", googleOAuthHandler.Callback)
			authGroup.POST("/google/token", googleOAuthHandler.Token)
		}

		api.POST("/webhooks/payment", billingHandler.Webhook)
		api.GET("/billing/packages", billingHandler.Packages)

		me := api.Group("/me")
		me.Use(authMw)
		{
			// No adult check: Google sign-ups add their date of birth here.
			me.GET("/profile", profileHandler.GetProfile)
			me.PATCH("/profile", profileHandler.UpdateProfile)
			me.POST("/fcm-token", profileHandler.RegisterFCMToken)
		}

		member := api.Group("")
		member.Use(authMw, adultMw)
		{
			member.GET("/me/ledger", billingHandler.Ledger)
			member.GET("/me/referrals", referralHandler.GetMyReferrals)
			member.GET("/me/photos", photoHandler.List)
			member.POST("/me/photos", photoHandler.Upload)
			member.PUT("/me/photos/:id/main", photoHandler.SetMain)
			member.DELETE("/me/photos/:id", photoHandler.Delete)

			member.GET("/feed", feedHandler.Feed)
			member.GET("/users/:id", profileHandler.GetUser)

			member.POST("/crushes/:user_id", crushHandler.Send)
			member.GET("/crushes", crushHandler.List)
			member.GET("/matches", crushHandler.Matches)

			member.GET("/conversations", messageHandler.Conversations)
			member.GET("/conversations/:user_id/messages", messageHandler.List)
			member.POST("/conversations/:user_id/messages", messageHandler.Send)
			member.POST("/conversations/:user_id/read", messageHandler.MarkRead)
			member.DELETE("/messages/:id", messageHandler.Delete)
			member.POST("/uploads/chat-image", photoHandler.UploadChatImage)

			member.POST("/billing/purchase", billingHandler.Purchase)
			member.GET("/billing/payments", billingHandler.Payments)
			member.POST("/billing/subscription/cancel", billingHandler.CancelSubscription)

			member.GET("/notifications", notificationHandler.List)
			member.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
			member.POST("/notifications/read-all", notificationHandler.MarkAllRead)

			member.POST("/blocks/:user_id", blockHandler.Block)
			member.DELETE("/blocks/:user_id", blockHandler.Unblock)
			member.GET("/blocks", blockHandler.List)
			member.POST("/reports", reportHandler.Create)
		}
	}

	return &App{Engine: r, Hub: deps.Hub, Notifications: notifSvc}, nil
}
