// 题库公式格式修复工具
//
// 逐章节扫描试题库，调用模型把混乱的数学定界符统一成 \( \)，
// 然后把 question_text、answer、options 三个字段回写数据库。
// 重跑安全：按主键覆盖写，同样的修复结果写多少次都一样。
//
// 用法: go run main.go [-config configs] [-chapter 章节名] [-limit N] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"latex_format_fixer/internal/config"
	"latex_format_fixer/internal/repository"
	"latex_format_fixer/internal/service"
	"latex_format_fixer/pkg/database"
	"latex_format_fixer/pkg/logger"
	"latex_format_fixer/pkg/monitoring"
	"latex_format_fixer/pkg/tracing"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "configs", "配置文件目录")
	chapter := flag.String("chapter", "", "只处理指定章节，默认处理全库")
	limit := flag.Int("limit", 0, "每个章节最多处理的题目数，0 为不限制")
	dryRun := flag.Bool("dry-run", false, "只调用模型并解析，不回写数据库")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.DryRun = *dryRun
	cfg.Chapter = *chapter
	cfg.Limit = *limit

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// 响应缓存是可选依赖，Redis 连不上就降级为每题都调模型
	var cache *service.ResponseCacheService
	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis 连接失败，本次运行不启用响应缓存", zap.Error(err))
		} else {
			defer rdb.Close()
			cache = service.NewResponseCacheService(rdb, cfg.Redis.CacheTTLHours)
		}
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("latex-format-fixer", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	// 监控初始化
	monitoring.Init()
	if cfg.Metrics.Enabled {
		startMetricsServer(cfg, db)
	}

	repo := repository.NewExamQuestionRepository(db)
	ai := service.NewAIService(cfg.AI)
	storage := service.NewStorageService(cfg)
	fixer := service.NewLatexFixService(repo, ai, cache, cfg)

	report, err := fixer.Run(context.Background())
	if err != nil {
		// 章节枚举失败属于致命错误，释放连接后以非零码退出
		logger.Log.Error("修复任务失败", zap.Error(err))
		database.CloseDB(db)
		logger.Log.Sync()
		os.Exit(1)
	}

	reportURL, err := storage.SaveReport(context.Background(),
		fmt.Sprintf("latexfix_report_%s.json", report.RunID), report)
	if err != nil {
		logger.Log.Warn("运行报告保存失败", zap.Error(err))
	}

	printSummary(report, reportURL)
	database.CloseDB(db)
}

// startMetricsServer 在后台起一个只挂 /metrics 和 /healthz 的监听，
// 长时间的整库修复可以接进现有的 Prometheus 抓取
func startMetricsServer(cfg *config.Config, db *gorm.DB) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	go func() {
		addr := ":" + cfg.Metrics.Port
		logger.Log.Info("指标服务已启动", zap.String("addr", addr))
		if err := router.Run(addr); err != nil {
			logger.Log.Error("指标服务退出", zap.Error(err))
		}
	}()
}

// printSummary 在控制台给出一份人看的运行汇总，结构化日志里都有对应字段
func printSummary(report *service.RunReport, reportURL string) {
	fmt.Println()
	color.Cyan("========= 公式修复运行汇总 =========")
	fmt.Printf("运行 ID: %s\n", report.RunID)
	fmt.Printf("耗时: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	if report.DryRun {
		color.Yellow("dry-run 模式，未写入数据库")
	}

	var total, updated, failed int
	for _, ch := range report.Chapters {
		total += ch.Total
		updated += ch.Updated
		failed += ch.Failed

		line := fmt.Sprintf("%s: 共 %d 题，成功 %d，失败 %d", ch.Chapter, ch.Total, ch.Updated, ch.Failed)
		if ch.Error != "" || ch.Failed > 0 {
			color.Red(line)
		} else {
			color.Green(line)
		}
	}

	fmt.Printf("合计: %d 题，成功 %d，失败 %d\n", total, updated, failed)
	if len(report.FailedRecords) > 0 {
		color.Red("失败记录 %d 条，明细见运行报告", len(report.FailedRecords))
	}
	if reportURL != "" {
		fmt.Printf("运行报告: %s\n", reportURL)
	}
}
