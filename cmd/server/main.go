// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"mediconnect/internal/aichat"
	"mediconnect/internal/config"
	"mediconnect/internal/handler"
	"mediconnect/internal/middleware"
	"mediconnect/internal/model"
	"mediconnect/internal/pipeline"
	"mediconnect/internal/repository"
	"mediconnect/internal/service"
	"mediconnect/pkg/database"
	"mediconnect/pkg/embedding"
	"mediconnect/pkg/es"
	"mediconnect/pkg/kafka"
	"mediconnect/pkg/llm"
	"mediconnect/pkg/log"
	"mediconnect/pkg/storage"
	"mediconnect/pkg/tika"
	"mediconnect/pkg/token"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储、ES 与 Kafka
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.AutoMigrate(
		&model.User{},
		&model.Patient{},
		&model.Doctor{},
		&model.PharmacyStore{},
		&model.DoctorSlot{},
		&model.Appointment{},
		&model.AiConsultation{},
		&model.ConsultFeedback{},
		&model.Prescription{},
		&model.PrescriptionMedicine{},
		&model.MedicineOrder{},
		&model.OrderItem{},
		&model.DeliveryUpdate{},
		&model.MedicalReport{},
	)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if err := es.InitES(cfg.Elasticsearch); err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducers(cfg.Kafka)

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	doctorRepo := repository.NewDoctorRepository(database.DB)
	appointmentRepo := repository.NewAppointmentRepository(database.DB)
	consultRepo := repository.NewConsultationRepository(database.DB)
	prescriptionRepo := repository.NewPrescriptionRepository(database.DB)
	orderRepo := repository.NewOrderRepository(database.DB)
	reportRepo := repository.NewReportRepository(database.DB)
	sessionStore := repository.NewSessionStore(database.RDB)
	tokenRepo := repository.NewTokenRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.AI)
	sessions := aichat.NewManager(sessionStore, aichat.DefaultContextTTL, aichat.MaxMessages, 0)
	dispatcher := aichat.NewDispatcher(cfg.AI.Retry.MaxRetries, time.Duration(cfg.AI.Retry.BaseDelayMs)*time.Millisecond)

	userService := service.NewUserService(userRepo, doctorRepo, tokenRepo, jwtManager)
	doctorService := service.NewDoctorService(doctorRepo)
	appointmentService := service.NewAppointmentService(appointmentRepo, doctorRepo, consultRepo)
	consultationService := service.NewConsultationService(consultRepo, doctorRepo, sessions, llmClient, dispatcher, cfg.AI)
	prescriptionService := service.NewPrescriptionService(prescriptionRepo)
	orderService := service.NewOrderService(orderRepo, prescriptionRepo)
	reportService := service.NewReportService(reportRepo, embeddingClient, cfg.MinIO, cfg.Elasticsearch)

	// 6. 初始化报告索引管道 (Processor)
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		cfg.Elasticsearch,
		cfg.MinIO,
		cfg.Embedding,
		reportRepo,
	)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartReportConsumer(cfg.Kafka, processor)
	go kafka.StartFeedbackConsumer(cfg.Kafka, service.NewFeedbackRecorder(consultRepo))

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	authRequired := middleware.AuthMiddleware(jwtManager, userService, tokenRepo)

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", handler.NewUserHandler(userService).Register)
			users.POST("/login", handler.NewUserHandler(userService).Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(authRequired)
			{
				authed.GET("/me", handler.NewUserHandler(userService).Profile)
				authed.PUT("/me", handler.NewUserHandler(userService).UpdateProfile)
				authed.POST("/logout", handler.NewUserHandler(userService).Logout)
			}
		}

		// 医生目录与时段路由组
		doctors := apiV1.Group("/doctors")
		doctors.Use(authRequired)
		{
			doctors.GET("", handler.NewDoctorHandler(doctorService).List)
			doctors.GET("/search", handler.NewDoctorHandler(doctorService).Search)
			doctors.GET("/:doctorId/slots", handler.NewDoctorHandler(doctorService).Slots)
			doctors.POST("/slots", middleware.RequireRole(model.RoleDoctor), handler.NewDoctorHandler(doctorService).AddSlot)
		}

		// 预约路由组
		appointments := apiV1.Group("/appointments")
		appointments.Use(authRequired)
		{
			appointments.POST("", middleware.RequireRole(model.RolePatient), handler.NewAppointmentHandler(appointmentService, doctorService).Book)
			appointments.GET("/mine", middleware.RequireRole(model.RolePatient), handler.NewAppointmentHandler(appointmentService, doctorService).Mine)
			appointments.GET("/doctor", middleware.RequireRole(model.RoleDoctor), handler.NewAppointmentHandler(appointmentService, doctorService).ForDoctor)
			appointments.PUT("/:id/status", middleware.RequireRole(model.RoleDoctor), handler.NewAppointmentHandler(appointmentService, doctorService).UpdateStatus)
			appointments.DELETE("/:id", middleware.RequireRole(model.RolePatient), handler.NewAppointmentHandler(appointmentService, doctorService).Cancel)
		}

		// AI 问诊路由组
		ai := apiV1.Group("/ai")
		ai.Use(authRequired, middleware.RequireRole(model.RolePatient))
		{
			ai.POST("/consult", handler.NewAiHandler(consultationService).Consult)
			ai.GET("/history", handler.NewAiHandler(consultationService).History)
			ai.GET("/conversations/:conversationId", handler.NewAiHandler(consultationService).Conversation)
			ai.GET("/questions", handler.NewAiHandler(consultationService).RecentQuestions)
			ai.POST("/feedback", handler.NewAiHandler(consultationService).Feedback)
			ai.GET("/export", handler.NewAiHandler(consultationService).Export)
			ai.POST("/new-conversation", handler.NewAiHandler(consultationService).NewConversation)
		}

		// 处方路由组
		prescriptions := apiV1.Group("/prescriptions")
		prescriptions.Use(authRequired)
		{
			prescriptions.POST("", middleware.RequireRole(model.RoleDoctor), handler.NewPrescriptionHandler(prescriptionService, doctorService).Issue)
			prescriptions.GET("/mine", middleware.RequireRole(model.RolePatient), handler.NewPrescriptionHandler(prescriptionService, doctorService).Mine)
			prescriptions.GET("/doctor", middleware.RequireRole(model.RoleDoctor), handler.NewPrescriptionHandler(prescriptionService, doctorService).ForDoctor)
			prescriptions.GET("/number/:number", handler.NewPrescriptionHandler(prescriptionService, doctorService).ByNumber)
			prescriptions.PUT("/:id/status", middleware.RequireRole(model.RoleDoctor), handler.NewPrescriptionHandler(prescriptionService, doctorService).UpdateStatus)
		}

		// 药品订单路由组
		orders := apiV1.Group("/orders")
		orders.Use(authRequired)
		{
			orders.POST("", middleware.RequireRole(model.RolePatient), handler.NewOrderHandler(orderService).Place)
			orders.GET("/mine", middleware.RequireRole(model.RolePatient), handler.NewOrderHandler(orderService).Mine)
			orders.DELETE("/:id", middleware.RequireRole(model.RolePatient), handler.NewOrderHandler(orderService).Cancel)
			orders.GET("/pending", middleware.RequireRole(model.RolePharmacist), handler.NewOrderHandler(orderService).Pending)
			orders.GET("/pharmacy", middleware.RequireRole(model.RolePharmacist), handler.NewOrderHandler(orderService).ForPharmacy)
			orders.GET("/pharmacy/stats", middleware.RequireRole(model.RolePharmacist), handler.NewOrderHandler(orderService).Stats)
			orders.POST("/:id/accept", middleware.RequireRole(model.RolePharmacist), handler.NewOrderHandler(orderService).Accept)
			orders.POST("/:id/reject", middleware.RequireRole(model.RolePharmacist), handler.NewOrderHandler(orderService).Reject)
			orders.PUT("/:id/status", middleware.RequireRole(model.RolePharmacist), handler.NewOrderHandler(orderService).AdvanceStatus)
		}

		// 医疗报告路由组
		reports := apiV1.Group("/reports")
		reports.Use(authRequired, middleware.RequireRole(model.RolePatient))
		{
			reports.POST("/upload", handler.NewReportHandler(reportService).Upload)
			reports.GET("/mine", handler.NewReportHandler(reportService).Mine)
			reports.GET("/:id/download", handler.NewReportHandler(reportService).DownloadURL)
			reports.GET("/search", handler.NewReportHandler(reportService).Search)
		}
	}

	// 问诊 WebSocket 路由，令牌经路径参数校验
	r.GET("/ws/consult/:token", handler.NewChatHandler(consultationService, userService, jwtManager).Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}
