package config

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/senirlioglu/envanter-risk-analizi/internal/classifier"
	"github.com/senirlioglu/envanter-risk-analizi/internal/normalizer"
	"github.com/senirlioglu/envanter-risk-analizi/internal/pipeline"
	"github.com/senirlioglu/envanter-risk-analizi/internal/risk"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
	Log      LogConfig
	Analysis AnalysisConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	MaxUploadMB    int64
}

type DatabaseConfig struct {
	Driver       string // postgres, pgx or sqlite3
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	Path         string // sqlite3 file
	MaxOpenConns int
	MaxParallel  int64
}

// DSN builds the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	switch c.Driver {
	case "sqlite3":
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Path)
	case "pgx":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host + ":" + c.Port,
			Path:     c.DBName,
			RawQuery: "sslmode=" + c.SSLMode,
		}
		return u.String()
	default:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
}

type AppConfig struct {
	UploadDir string
	DataDir   string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
	LockTTLSeconds   int
}

// StorageConfig points at the S3-compatible bucket holding inventory exports.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type DriveConfig struct {
	CredentialsFile string
	FolderID        string
	FolderPath      string
}

type LogConfig struct {
	Level  string
	Format string
}

// AnalysisConfig carries every analysis threshold plus the reference data
// locations.
type AnalysisConfig struct {
	WasteLossSign string
	DecimalComma  bool
	TopN          int
	WorkerCount   int
	HistoryDepth  int
	Timeout       time.Duration

	BalanceTolerance          float64
	InternalTheftMinUnitPrice float64
	InternalTheftMaxRatio     float64
	DeviationVeryHigh         float64
	DeviationHigh             float64
	DeviationMedium           float64
	DeviationLowMedium        float64
	MaterialityFloor          float64
	ExternalHighMultiple      float64
	FamilyTolerance           float64
	FamilySizeTolerance       float64
	LowValueThreshold         float64
	FragmentedCount           int

	CriticalLossRatio  float64
	RiskyLossRatio     float64
	CautionLossRatio   float64
	CriticalTheftCount int
	RiskyTheftCount    int
	CautionTheftCount  int

	WeightLossVsMedian      float64
	WeightCategoryShortage  float64
	WeightInternalTheft     float64
	WeightChronic           float64
	WeightDecoySurplus      float64
	ContinuousMinSales      float64
	ContinuousDeviationMult float64

	RosterFile   string
	DecoyFile    string
	RequiredFile string
}

// Thresholds converts the flat settings into classifier thresholds.
func (a AnalysisConfig) Thresholds() classifier.Thresholds {
	th := classifier.DefaultThresholds()
	th.BalanceTolerance = a.BalanceTolerance
	th.InternalTheftMinUnitPrice = a.InternalTheftMinUnitPrice
	th.InternalTheftMaxRatio = a.InternalTheftMaxRatio
	th.DeviationVeryHigh = a.DeviationVeryHigh
	th.DeviationHigh = a.DeviationHigh
	th.DeviationMedium = a.DeviationMedium
	th.DeviationLowMedium = a.DeviationLowMedium
	th.MaterialityFloor = a.MaterialityFloor
	th.ExternalHighMultiple = a.ExternalHighMultiple
	th.FamilyTolerance = a.FamilyTolerance
	th.FamilySizeTolerance = a.FamilySizeTolerance
	th.LowValueThreshold = a.LowValueThreshold
	th.FragmentedCount = a.FragmentedCount
	return th
}

func (a AnalysisConfig) RiskConfig() risk.Config {
	return risk.Config{
		CriticalLossRatio:  a.CriticalLossRatio,
		RiskyLossRatio:     a.RiskyLossRatio,
		CautionLossRatio:   a.CautionLossRatio,
		CriticalTheftCount: a.CriticalTheftCount,
		RiskyTheftCount:    a.RiskyTheftCount,
		CautionTheftCount:  a.CautionTheftCount,
	}
}

func (a AnalysisConfig) Weights() risk.Weights {
	w := risk.DefaultWeights()
	w.LossVsMedian = a.WeightLossVsMedian
	w.CategoryShortage = a.WeightCategoryShortage
	w.InternalTheft = a.WeightInternalTheft
	w.Chronic = a.WeightChronic
	w.DecoySurplus = a.WeightDecoySurplus
	return w
}

// Pipeline assembles the full analysis configuration and validates it.
func (a AnalysisConfig) Pipeline() (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	cfg.WorkerCount = a.WorkerCount
	cfg.TopN = a.TopN
	cfg.HistoryDepth = a.HistoryDepth
	cfg.Normalize = normalizer.Options{
		WasteLossSign: normalizer.ParseWasteSign(a.WasteLossSign),
		DecimalComma:  a.DecimalComma,
	}
	cfg.Thresholds = a.Thresholds()
	cfg.Risk = a.RiskConfig()
	cfg.Weights = a.Weights()
	cfg.Continuous.MinSales = a.ContinuousMinSales
	cfg.Continuous.DeviationMultiple = a.ContinuousDeviationMult
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return cfg, nil
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the environment once and caches the result.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = load(viper.New())

		ensureDir(instance.App.UploadDir)
		ensureDir(instance.App.DataDir)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER_MAX_UPLOAD_MB", 64)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "envanter")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "./data/envanter.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_PARALLEL", 10)

	v.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	v.SetDefault("APP_DATA_DIR", "./data/output")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 300)
	v.SetDefault("CACHE_LOCK_TTL_SECONDS", 600)

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_BUCKET", "envanter")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "exports/")

	v.SetDefault("DRIVE_CREDENTIALS_FILE", "")
	v.SetDefault("DRIVE_FOLDER_ID", "")
	v.SetDefault("DRIVE_FOLDER_PATH", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	th := classifier.DefaultThresholds()
	rc := risk.DefaultConfig()
	w := risk.DefaultWeights()
	cc := risk.DefaultContinuousConfig()
	v.SetDefault("ANALYSIS_WASTE_LOSS_SIGN", string(normalizer.WasteLossNegative))
	v.SetDefault("ANALYSIS_DECIMAL_COMMA", true)
	v.SetDefault("ANALYSIS_TOP_N", 20)
	v.SetDefault("ANALYSIS_WORKER_COUNT", 4)
	v.SetDefault("ANALYSIS_HISTORY_DEPTH", 3)
	v.SetDefault("ANALYSIS_TIMEOUT", "5m")
	v.SetDefault("ANALYSIS_BALANCE_TOLERANCE", th.BalanceTolerance)
	v.SetDefault("ANALYSIS_IT_MIN_UNIT_PRICE", th.InternalTheftMinUnitPrice)
	v.SetDefault("ANALYSIS_IT_MAX_RATIO", th.InternalTheftMaxRatio)
	v.SetDefault("ANALYSIS_DEVIATION_VERY_HIGH", th.DeviationVeryHigh)
	v.SetDefault("ANALYSIS_DEVIATION_HIGH", th.DeviationHigh)
	v.SetDefault("ANALYSIS_DEVIATION_MEDIUM", th.DeviationMedium)
	v.SetDefault("ANALYSIS_DEVIATION_LOW_MEDIUM", th.DeviationLowMedium)
	v.SetDefault("ANALYSIS_MATERIALITY_FLOOR", th.MaterialityFloor)
	v.SetDefault("ANALYSIS_EXTERNAL_HIGH_MULTIPLE", th.ExternalHighMultiple)
	v.SetDefault("ANALYSIS_FAMILY_TOLERANCE", th.FamilyTolerance)
	v.SetDefault("ANALYSIS_FAMILY_SIZE_TOLERANCE", th.FamilySizeTolerance)
	v.SetDefault("ANALYSIS_LOW_VALUE_THRESHOLD", th.LowValueThreshold)
	v.SetDefault("ANALYSIS_FRAGMENTED_COUNT", th.FragmentedCount)
	v.SetDefault("ANALYSIS_CRITICAL_LOSS_RATIO", rc.CriticalLossRatio)
	v.SetDefault("ANALYSIS_RISKY_LOSS_RATIO", rc.RiskyLossRatio)
	v.SetDefault("ANALYSIS_CAUTION_LOSS_RATIO", rc.CautionLossRatio)
	v.SetDefault("ANALYSIS_CRITICAL_THEFT_COUNT", rc.CriticalTheftCount)
	v.SetDefault("ANALYSIS_RISKY_THEFT_COUNT", rc.RiskyTheftCount)
	v.SetDefault("ANALYSIS_CAUTION_THEFT_COUNT", rc.CautionTheftCount)
	v.SetDefault("ANALYSIS_WEIGHT_LOSS_VS_MEDIAN", w.LossVsMedian)
	v.SetDefault("ANALYSIS_WEIGHT_CATEGORY_SHORTAGE", w.CategoryShortage)
	v.SetDefault("ANALYSIS_WEIGHT_INTERNAL_THEFT", w.InternalTheft)
	v.SetDefault("ANALYSIS_WEIGHT_CHRONIC", w.Chronic)
	v.SetDefault("ANALYSIS_WEIGHT_DECOY_SURPLUS", w.DecoySurplus)
	v.SetDefault("ANALYSIS_CONTINUOUS_MIN_SALES", cc.MinSales)
	v.SetDefault("ANALYSIS_CONTINUOUS_DEVIATION_MULTIPLE", cc.DeviationMultiple)
	v.SetDefault("ANALYSIS_ROSTER_FILE", "")
	v.SetDefault("ANALYSIS_DECOY_FILE", "")
	v.SetDefault("ANALYSIS_REQUIRED_FILE", "")
}

// load builds a Config from defaults and the environment.
func load(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			MaxUploadMB:    v.GetInt64("SERVER_MAX_UPLOAD_MB"),
		},
		Database: DatabaseConfig{
			Driver:       v.GetString("DB_DRIVER"),
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			Path:         v.GetString("DB_PATH"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxParallel:  v.GetInt64("DB_MAX_PARALLEL"),
		},
		App: AppConfig{
			UploadDir: v.GetString("APP_UPLOAD_DIR"),
			DataDir:   v.GetString("APP_DATA_DIR"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
			LockTTLSeconds:   v.GetInt("CACHE_LOCK_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
		Drive: DriveConfig{
			CredentialsFile: v.GetString("DRIVE_CREDENTIALS_FILE"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
			FolderPath:      v.GetString("DRIVE_FOLDER_PATH"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Analysis: AnalysisConfig{
			WasteLossSign: v.GetString("ANALYSIS_WASTE_LOSS_SIGN"),
			DecimalComma:  v.GetBool("ANALYSIS_DECIMAL_COMMA"),
			TopN:          v.GetInt("ANALYSIS_TOP_N"),
			WorkerCount:   v.GetInt("ANALYSIS_WORKER_COUNT"),
			HistoryDepth:  v.GetInt("ANALYSIS_HISTORY_DEPTH"),
			Timeout:       v.GetDuration("ANALYSIS_TIMEOUT"),

			BalanceTolerance:          v.GetFloat64("ANALYSIS_BALANCE_TOLERANCE"),
			InternalTheftMinUnitPrice: v.GetFloat64("ANALYSIS_IT_MIN_UNIT_PRICE"),
			InternalTheftMaxRatio:     v.GetFloat64("ANALYSIS_IT_MAX_RATIO"),
			DeviationVeryHigh:         v.GetFloat64("ANALYSIS_DEVIATION_VERY_HIGH"),
			DeviationHigh:             v.GetFloat64("ANALYSIS_DEVIATION_HIGH"),
			DeviationMedium:           v.GetFloat64("ANALYSIS_DEVIATION_MEDIUM"),
			DeviationLowMedium:        v.GetFloat64("ANALYSIS_DEVIATION_LOW_MEDIUM"),
			MaterialityFloor:          v.GetFloat64("ANALYSIS_MATERIALITY_FLOOR"),
			ExternalHighMultiple:      v.GetFloat64("ANALYSIS_EXTERNAL_HIGH_MULTIPLE"),
			FamilyTolerance:           v.GetFloat64("ANALYSIS_FAMILY_TOLERANCE"),
			FamilySizeTolerance:       v.GetFloat64("ANALYSIS_FAMILY_SIZE_TOLERANCE"),
			LowValueThreshold:         v.GetFloat64("ANALYSIS_LOW_VALUE_THRESHOLD"),
			FragmentedCount:           v.GetInt("ANALYSIS_FRAGMENTED_COUNT"),

			CriticalLossRatio:  v.GetFloat64("ANALYSIS_CRITICAL_LOSS_RATIO"),
			RiskyLossRatio:     v.GetFloat64("ANALYSIS_RISKY_LOSS_RATIO"),
			CautionLossRatio:   v.GetFloat64("ANALYSIS_CAUTION_LOSS_RATIO"),
			CriticalTheftCount: v.GetInt("ANALYSIS_CRITICAL_THEFT_COUNT"),
			RiskyTheftCount:    v.GetInt("ANALYSIS_RISKY_THEFT_COUNT"),
			CautionTheftCount:  v.GetInt("ANALYSIS_CAUTION_THEFT_COUNT"),

			WeightLossVsMedian:      v.GetFloat64("ANALYSIS_WEIGHT_LOSS_VS_MEDIAN"),
			WeightCategoryShortage:  v.GetFloat64("ANALYSIS_WEIGHT_CATEGORY_SHORTAGE"),
			WeightInternalTheft:     v.GetFloat64("ANALYSIS_WEIGHT_INTERNAL_THEFT"),
			WeightChronic:           v.GetFloat64("ANALYSIS_WEIGHT_CHRONIC"),
			WeightDecoySurplus:      v.GetFloat64("ANALYSIS_WEIGHT_DECOY_SURPLUS"),
			ContinuousMinSales:      v.GetFloat64("ANALYSIS_CONTINUOUS_MIN_SALES"),
			ContinuousDeviationMult: v.GetFloat64("ANALYSIS_CONTINUOUS_DEVIATION_MULTIPLE"),

			RosterFile:   v.GetString("ANALYSIS_ROSTER_FILE"),
			DecoyFile:    v.GetString("ANALYSIS_DECOY_FILE"),
			RequiredFile: v.GetString("ANALYSIS_REQUIRED_FILE"),
		},
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create directory")
		}
	}
}
