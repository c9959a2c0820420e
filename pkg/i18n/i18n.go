package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	UsingDBPath        string
	ServerListening    string
	ShuttingDown       string
	ShutdownComplete   string
	ConfigLoadFailed   string
	DBInitFailed       string
	DBMigrationsFailed string
	APIServerError     string
	SystemMetricsInit  string
	InstanceID         string

	// Services
	TemplatesSynced     string
	TemplatesLoadFailed string
	StrategyBackend     string
	RedisConnectFailed  string
	BacktestTransport   string
	BacktestDialFailed  string
	BacktestProbeFailed string
	MockMarketEnabled   string
	MarketClientEnabled string
	SessionSweepStarted string

	// API
	EmptyStrategy     string
	SessionNotFound   string
	BlockNotFound     string
	InvalidBlockType  string
	InvalidSettings   string
	StaleResult       string
	LoginRequired     string
	StrategyNotFound  string
	StrategySaved     string
	TradeExecuted     string
	NoResults         string
	BacktestFailed    string
	MarketUnavailable string
	InsufficientFunds string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	// System
	Starting:           "Starting AlgoBlocks workbench...",
	ConfigLoaded:       "Config loaded (Port: %s)",
	UsingDBPath:        "Using DB path: %s",
	ServerListening:    "Server listening on :%s",
	ShuttingDown:       "Shutting down gracefully...",
	ShutdownComplete:   "Shutdown complete.",
	ConfigLoadFailed:   "Failed to load config: %v",
	DBInitFailed:       "Failed to init database: %v",
	DBMigrationsFailed: "Failed to apply migrations: %v",
	APIServerError:     "API server error: %v",
	SystemMetricsInit:  "System metrics initialized",
	InstanceID:         "Instance id: %s",

	// Services
	TemplatesSynced:     "Synced %d strategy templates from %s",
	TemplatesLoadFailed: "Failed to load strategy templates: %v",
	StrategyBackend:     "Strategy persistence backend: %s",
	RedisConnectFailed:  "Redis unreachable at %s: %v",
	BacktestTransport:   "Backtest service via %s at %s",
	BacktestDialFailed:  "Failed to connect to backtest service: %v",
	BacktestProbeFailed: "Backtest service health probe failed: %v",
	MockMarketEnabled:   "Market data: offline mock provider",
	MarketClientEnabled: "Market data: %s",
	SessionSweepStarted: "Editor sessions expire after %v idle",

	// API
	EmptyStrategy:     "Please add at least one block to create a strategy.",
	SessionNotFound:   "Editor session not found",
	BlockNotFound:     "Block not found",
	InvalidBlockType:  "Block type must be indicator, entry or exit",
	InvalidSettings:   "Invalid backtest settings: %v",
	StaleResult:       "The strategy changed while the request was running; result discarded",
	LoginRequired:     "Please log in first",
	StrategyNotFound:  "Strategy '%s' not found",
	StrategySaved:     "Strategy saved as %s",
	TradeExecuted:     "Trade executed successfully",
	NoResults:         "Run a backtest first",
	BacktestFailed:    "Backtest failed: %s",
	MarketUnavailable: "Market data unavailable",
	InsufficientFunds: "Insufficient funds",
}

// Chinese messages
var messagesZH = Messages{
	// System
	Starting:           "正在启动 AlgoBlocks 策略工作台...",
	ConfigLoaded:       "配置已加载 (端口: %s)",
	UsingDBPath:        "数据库路径: %s",
	ServerListening:    "服务器监听端口 :%s",
	ShuttingDown:       "正在优雅关闭...",
	ShutdownComplete:   "关闭完成。",
	ConfigLoadFailed:   "加载配置失败: %v",
	DBInitFailed:       "初始化数据库失败: %v",
	DBMigrationsFailed: "数据库迁移失败: %v",
	APIServerError:     "API 服务器错误: %v",
	SystemMetricsInit:  "系统指标已初始化",
	InstanceID:         "实例 ID: %s",

	// Services
	TemplatesSynced:     "已从 %[2]s 同步 %[1]d 个策略模板",
	TemplatesLoadFailed: "加载策略模板失败: %v",
	StrategyBackend:     "策略存储后端: %s",
	RedisConnectFailed:  "无法连接 Redis %s: %v",
	BacktestTransport:   "回测服务通过 %s 连接 %s",
	BacktestDialFailed:  "连接回测服务失败: %v",
	BacktestProbeFailed: "回测服务健康检查失败: %v",
	MockMarketEnabled:   "行情数据: 离线模拟",
	MarketClientEnabled: "行情数据: %s",
	SessionSweepStarted: "编辑会话空闲 %v 后过期",

	// API
	EmptyStrategy:     "请至少添加一个积木块来创建策略。",
	SessionNotFound:   "编辑会话不存在",
	BlockNotFound:     "积木块不存在",
	InvalidBlockType:  "积木类型必须是 indicator、entry 或 exit",
	InvalidSettings:   "回测参数无效: %v",
	StaleResult:       "请求期间策略已修改，结果已丢弃",
	LoginRequired:     "请先登录",
	StrategyNotFound:  "策略 '%s' 不存在",
	StrategySaved:     "策略已保存为 %s",
	TradeExecuted:     "交易已执行",
	NoResults:         "请先运行回测",
	BacktestFailed:    "回测失败: %s",
	MarketUnavailable: "行情数据不可用",
	InsufficientFunds: "资金不足",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}
