package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres          Postgres
	Telegram          Telegram
	Redis             Redis
	API               API
	Cache             Cache
	Jobs              Jobs
	Sheets            Sheets
	Gemini            Gemini
	Tax               Tax
	Metrics           Metrics
	CamsStatementsDir string        `env:"CAMS_STATEMENTS_DIR" envDefault:"statements"`
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"24h"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN"`
	ChatID           int64         `env:"TELEGRAM_CHAT_ID"`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES" envDefault:"50000000"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug   bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	Amfi    Amfi
	Mfapi   Mfapi
}

type Amfi struct {
	Url string `env:"AMFI_API_URL" envDefault:"https://www.amfiindia.com"`
}

type Mfapi struct {
	Url string `env:"MFAPI_URL" envDefault:"https://api.mfapi.in"`
}

type Cache struct {
	NavExpiration time.Duration `env:"CACHE_NAV_EXPIRATION" envDefault:"12h"`
}

type Jobs struct {
	WorkflowCrontab    string        `env:"WORKFLOW_JOB_CRONTAB" envDefault:"0 8 * * *"`
	Timezone           string        `env:"WORKFLOW_JOB_TIMEZONE" envDefault:"Asia/Kolkata"`
	NavRefreshInterval time.Duration `env:"NAV_REFRESH_JOB_INTERVAL" envDefault:"6h"`
	RunWorkflowAtStart bool          `env:"RUN_WORKFLOW_AT_START" envDefault:"false"`
}

type Sheets struct {
	SpreadsheetID   string `env:"SHEETS_SPREADSHEET_ID"`
	CredentialsFile string `env:"SHEETS_CREDENTIALS_FILE"`
}

type Gemini struct {
	APIKey string `env:"GEMINI_API_KEY"`
	Model  string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
}

// Tax holds the capital gains parameters for Indian mutual funds.
type Tax struct {
	LTCGExemption     float64 `env:"TAX_LTCG_EXEMPTION" envDefault:"125000"`
	LTCGRate          float64 `env:"TAX_LTCG_RATE" envDefault:"0.125"`
	STCGRate          float64 `env:"TAX_STCG_RATE" envDefault:"0.20"`
	EquityHoldingDays int     `env:"TAX_EQUITY_HOLDING_DAYS" envDefault:"365"`
}

type Metrics struct {
	RiskFreeRate    float64 `env:"METRICS_RISK_FREE_RATE" envDefault:"0.065"`
	PeriodsPerYear  int     `env:"METRICS_PERIODS_PER_YEAR" envDefault:"252"`
	BenchmarkScheme string  `env:"METRICS_BENCHMARK_SCHEME" envDefault:""`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
