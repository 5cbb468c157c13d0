package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/iWorld-y/store_radar/app/store_radar/pkg/config"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/engine"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/logger"
	"github.com/iWorld-y/store_radar/app/store_radar/pkg/storage"
)

var (
	flagConfig  = flag.String("config", "configs/config.yaml", "config path")
	flagReviews = flag.String("reviews", "", `optional JSON file: {"store_id": ["review text", ...]}`)
	flagStores  = flag.String("stores", "", "comma separated store ids, overrides config")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

// run 返回进程退出码，保证 defer 的资源释放在退出前执行
func run() int {
	// 1. 加载配置
	cfg, err := config.LoadConfig(*flagConfig)
	if err != nil {
		log.Printf("无法加载配置文件: %v", err)
		return 1
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Printf("无法初始化日志: %v", err)
		return 1
	}
	logger.Log.Info("启动门店雷达...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 初始化存储
	store, err := storage.Open(cfg.DB)
	if err != nil {
		logger.Log.Errorf("无法连接数据库: %v", err)
		return 1
	}
	defer store.Close()
	logger.Log.Infof("存储已就绪: driver=%s", cfg.DB.Driver)

	// 4. 初始化引擎
	eng, err := engine.NewEngine(ctx, cfg, store)
	if err != nil {
		logger.Log.Errorf("引擎初始化失败: %v", err)
		return 1
	}
	defer eng.Close()

	// 5. 可选：导入评论并打分
	if *flagReviews != "" {
		if err := ingestReviewFile(ctx, eng, *flagReviews); err != nil {
			logger.Log.Errorf("导入评论失败: %v", err)
			return 1
		}
	}

	// 6. 批量生成评分卡
	report, err := eng.AnalyzeAll(ctx, parseStores(*flagStores))
	if err != nil {
		logger.Log.Errorf("批量分析中断: %v", err)
		return 1
	}
	if len(report.Failures) > 0 {
		for key, msg := range report.Failures {
			logger.Log.Warnf("失败: %s: %s", key, msg)
		}
		return 1
	}
	return 0
}

// parseStores 解析逗号分隔的门店列表，忽略空白与空项
func parseStores(s string) []string {
	var stores []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			stores = append(stores, id)
		}
	}
	return stores
}

func ingestReviewFile(ctx context.Context, eng *engine.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var byStore map[string][]string
	if err := json.Unmarshal(data, &byStore); err != nil {
		return err
	}

	ids := make([]string, 0, len(byStore))
	for id := range byStore {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		reviews := make([]engine.Review, 0, len(byStore[id]))
		for _, text := range byStore[id] {
			reviews = append(reviews, engine.Review{Text: text})
		}
		if _, err := eng.IngestReviews(ctx, id, reviews); err != nil {
			return err
		}
	}
	return nil
}
