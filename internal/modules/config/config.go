package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"ladder_bot/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"

	usernameENV = "IG_USERNAME"
	passwordENV = "IG_PASSWORD"
	apiKeyENV   = "IG_API_KEY"

	liveUsernameENV = "IG_LIVE_USERNAME"
	livePasswordENV = "IG_LIVE_PASSWORD"
	liveAPIKeyENV   = "IG_LIVE_API_KEY"
)

const (
	demoBaseURL = "https://demo-api.ig.com/gateway/deal"
	liveBaseURL = "https://api.ig.com/gateway/deal"
)

type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != "" && c.APIKey != ""
}

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// DEMO или LIVE
	AccountMode string      `yaml:"account_mode"`
	Demo        Credentials `yaml:"demo"`
	Live        Credentials `yaml:"live"`

	// Эпики спредбеттинга: человекочитаемое имя -> epic.
	Markets map[string]string `yaml:"markets"`

	// Version-заголовок по эндпоинтам IG. Брокер меняет их между релизами
	// API, поэтому это данные конфигурации, а не код.
	EndpointVersions map[string]string `yaml:"endpoint_versions"`

	Risk models.RiskLimits `yaml:"risk"`

	JournalPath string `yaml:"journal_path"`

	// Дефолты лесенки для /ladder без части аргументов
	DefaultStartOffset float64 `yaml:"start_offset"`
	DefaultStepSize    float64 `yaml:"step_size"`
	DefaultRungs       int     `yaml:"rungs"`
	DefaultOrderSize   float64 `yaml:"order_size"`
	DefaultRetryJump   float64 `yaml:"retry_jump"`
	DefaultMaxRetries  int     `yaml:"max_retries"`

	// Авто-стратегия
	AutoCheckInterval    time.Duration
	AdjustmentThreshold  float64
	TrailingStopDistance float64
	MaxSpread            float64
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, errors.Wrap(err, "open config file")
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		AccountMode: "DEMO",

		Risk: models.RiskLimits{
			MaxDailyLoss:     200.0,
			MaxPositionSize:  5.0,
			MaxTotalExposure: 1000.0,
			MaxMarginUsage:   0.6,
			MaxOpenPositions: 10,
		},

		JournalPath: getenvDefault("ORDERS_JOURNAL", "orders.json"),

		DefaultStartOffset: 5,
		DefaultStepSize:    10,
		DefaultRungs:       3,
		DefaultOrderSize:   1,
		DefaultRetryJump:   10,
		DefaultMaxRetries:  3,

		AutoCheckInterval:    durationFromEnv("AUTO_CHECK_INTERVAL", "30s"),
		AdjustmentThreshold:  floatFromEnv("ADJUSTMENT_THRESHOLD", 10),
		TrailingStopDistance: floatFromEnv("TRAILING_STOP_DISTANCE", 20),
		MaxSpread:            floatFromEnv("MAX_SPREAD", 5),
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	if config.Demo.BaseURL == "" {
		config.Demo.BaseURL = demoBaseURL
	}
	if config.Live.BaseURL == "" {
		config.Live.BaseURL = liveBaseURL
	}

	// env перекрывает yaml — креды в файл обычно не кладут
	if v := os.Getenv(usernameENV); v != "" {
		config.Demo.Username = v
	}
	if v := os.Getenv(passwordENV); v != "" {
		config.Demo.Password = v
	}
	if v := os.Getenv(apiKeyENV); v != "" {
		config.Demo.APIKey = v
	}
	if v := os.Getenv(liveUsernameENV); v != "" {
		config.Live.Username = v
	}
	if v := os.Getenv(livePasswordENV); v != "" {
		config.Live.Password = v
	}
	if v := os.Getenv(liveAPIKeyENV); v != "" {
		config.Live.APIKey = v
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	if len(config.Markets) == 0 {
		config.Markets = defaultMarkets()
	}
	config.EndpointVersions = mergeVersions(config.EndpointVersions)

	return &config, nil
}

// ActiveCredentials — креды выбранного режима счёта.
func (c *Config) ActiveCredentials() Credentials {
	if c.AccountMode == "LIVE" {
		return c.Live
	}
	return c.Demo
}

// EpicByName возвращает epic по человекочитаемому имени; если имя не
// найдено, строка трактуется как сам epic.
func (c *Config) EpicByName(name string) string {
	if epic, ok := c.Markets[name]; ok {
		return epic
	}
	return name
}

func defaultMarkets() map[string]string {
	return map[string]string{
		"Gold Spot":        "CS.D.USCGC.TODAY.IP",
		"Russell 2000":     "IX.D.RUSSELL.DAILY.IP",
		"FTSE 100 Daily":   "IX.D.FTSE.DAILY.IP",
		"S&P 500":          "IX.D.SPTRD.DAILY.IP",
		"Germany 40 Daily": "IX.D.DAX.DAILY.IP",
		"Wall Street":      "IX.D.DOW.DAILY.IP",
		"UK 100 Cash":      "IX.D.FTSE.CASH.IP",
		"France 40 Daily":  "IX.D.CAC.DAILY.IP",
	}
}

func mergeVersions(over map[string]string) map[string]string {
	out := map[string]string{
		"session":        "2",
		"markets":        "3",
		"prices":         "3",
		"workingorders":  "2",
		"positions":      "2",
		"positions.otc":  "1",
		"positions.amnd": "2",
		"confirms":       "1",
		"accounts":       "1",
		"search":         "1",
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
