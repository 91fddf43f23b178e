package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"startuppush/internal/models"
)

type Config struct {
	Port          string
	DatabaseURL   string
	StoreDriver   string // postgres, memory
	SessionSecret string
	JWTSecret     string
	LogLevel      string
	LogFormat     string // json, console
	CORSOrigins   []string

	JaegerEndpoint         string
	KafkaBrokers           []string
	KafkaNotificationTopic string
	RedisAddr              string
	BoostCounterBackend    string // db, redis

	// Location 每日上限与月度计数器使用的时区
	Location *time.Location
	Policy   Policy
}

// Plan 单个推广套餐的售卖参数
type Plan struct {
	MaxSpots          int64
	DiscountThreshold int64
	DiscountPrice     decimal.Decimal
	FullPrice         decimal.Decimal
	Duration          time.Duration
	PricedInPoints    bool
}

// Policy 积分经济规则，可由 POLICY_FILE 覆盖
type Policy struct {
	BannedWords         []string
	DailyCaps           map[models.PointCategory]int
	PointsBoostCost     int
	ReportJailThreshold int
	Plans               map[models.PlanType]Plan
}

var defaultBannedWords = []string{
	"spam", "scam", "viagra", "casino", "porn", "fuck", "shit", "bitch", "bastard",
	"asshole", "idiot", "retard", "nigger", "faggot", "free money", "crypto giveaway",
}

func DefaultPolicy() Policy {
	return Policy{
		BannedWords: append([]string(nil), defaultBannedWords...),
		DailyCaps: map[models.PointCategory]int{
			models.CategoryVoting:     20,
			models.CategoryCommenting: 20,
			models.CategoryFollowing:  40,
			models.CategorySharing:    20,
		},
		PointsBoostCost:     50,
		ReportJailThreshold: 5,
		Plans: map[models.PlanType]Plan{
			models.PlanBoosted: {
				MaxSpots:          150,
				DiscountThreshold: 100,
				DiscountPrice:     decimal.RequireFromString("9.99"),
				FullPrice:         decimal.RequireFromString("19.99"),
				Duration:          7 * 24 * time.Hour,
			},
			models.PlanMaxBoosted: {
				MaxSpots:          50,
				DiscountThreshold: 30,
				DiscountPrice:     decimal.RequireFromString("29.99"),
				FullPrice:         decimal.RequireFromString("49.99"),
				Duration:          30 * 24 * time.Hour,
			},
			models.PlanPoints: {
				MaxSpots:          200,
				DiscountThreshold: 200,
				DiscountPrice:     decimal.Zero,
				FullPrice:         decimal.Zero,
				Duration:          24 * time.Hour,
				PricedInPoints:    true,
			},
		},
	}
}

// Load 读取 .env 与环境变量
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, reading configuration from environment")
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=startuppush port=5432 sslmode=disable"),
		StoreDriver:            getEnv("STORE_DRIVER", "postgres"),
		SessionSecret:          getEnv("SESSION_SECRET", "secret_key_change_me"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		CORSOrigins:            splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		JaegerEndpoint:         os.Getenv("JAEGER_ENDPOINT"),
		KafkaBrokers:           splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaNotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "notifications"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		BoostCounterBackend:    getEnv("BOOST_COUNTER_BACKEND", "db"),
		Location:               time.Local,
		Policy:                 DefaultPolicy(),
	}

	if name := os.Getenv("TZ_NAME"); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid TZ_NAME %q", name)
		}
		cfg.Location = loc
	}

	if path := os.Getenv("POLICY_FILE"); path != "" {
		if err := cfg.Policy.LoadFile(path); err != nil {
			return nil, err
		}
	}

	switch cfg.StoreDriver {
	case "postgres", "memory":
	default:
		return nil, errors.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.BoostCounterBackend {
	case "db":
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, errors.New("BOOST_COUNTER_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return nil, errors.Errorf("unknown BOOST_COUNTER_BACKEND %q", cfg.BoostCounterBackend)
	}

	return cfg, nil
}

type policyFile struct {
	BannedWords         []string                `yaml:"banned_words"`
	DailyCaps           map[string]int          `yaml:"daily_caps"`
	PointsBoostCost     *int                    `yaml:"points_boost_cost"`
	ReportJailThreshold *int                    `yaml:"report_jail_threshold"`
	Plans               map[string]planOverride `yaml:"plans"`
}

type planOverride struct {
	MaxSpots          *int64 `yaml:"max_spots"`
	DiscountThreshold *int64 `yaml:"discount_threshold"`
	DiscountPrice     string `yaml:"discount_price"`
	FullPrice         string `yaml:"full_price"`
	Duration          string `yaml:"duration"`
}

// LoadFile 用 YAML 文件覆盖默认规则，未出现的字段保持原值
func (p *Policy) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read policy file")
	}
	return p.Apply(raw)
}

func (p *Policy) Apply(raw []byte) error {
	var f policyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return errors.Wrap(err, "parse policy file")
	}

	if len(f.BannedWords) > 0 {
		p.BannedWords = f.BannedWords
	}
	for name, limit := range f.DailyCaps {
		if limit < 0 {
			return errors.Errorf("daily cap for %s must not be negative", name)
		}
		p.DailyCaps[models.PointCategory(name)] = limit
	}
	if f.PointsBoostCost != nil {
		if *f.PointsBoostCost <= 0 {
			return errors.New("points_boost_cost must be positive")
		}
		p.PointsBoostCost = *f.PointsBoostCost
	}
	if f.ReportJailThreshold != nil {
		p.ReportJailThreshold = *f.ReportJailThreshold
	}

	for name, o := range f.Plans {
		planType := models.PlanType(name)
		if !planType.Valid() {
			return errors.Errorf("unknown plan %q", name)
		}
		plan := p.Plans[planType]
		if o.MaxSpots != nil {
			plan.MaxSpots = *o.MaxSpots
		}
		if o.DiscountThreshold != nil {
			plan.DiscountThreshold = *o.DiscountThreshold
		}
		if o.DiscountPrice != "" {
			d, err := decimal.NewFromString(o.DiscountPrice)
			if err != nil {
				return errors.Wrapf(err, "plan %s discount_price", name)
			}
			plan.DiscountPrice = d
		}
		if o.FullPrice != "" {
			d, err := decimal.NewFromString(o.FullPrice)
			if err != nil {
				return errors.Wrapf(err, "plan %s full_price", name)
			}
			plan.FullPrice = d
		}
		if o.Duration != "" {
			d, err := time.ParseDuration(o.Duration)
			if err != nil {
				return errors.Wrapf(err, "plan %s duration", name)
			}
			plan.Duration = d
		}
		if plan.DiscountThreshold > plan.MaxSpots {
			return errors.Errorf("plan %s: discount_threshold must not exceed max_spots", name)
		}
		if plan.Duration <= 0 {
			return errors.Errorf("plan %s: duration must be positive", name)
		}
		p.Plans[planType] = plan
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
