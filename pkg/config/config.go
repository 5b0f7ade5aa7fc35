package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Drivers de almacenamiento.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Drivers del sink de eventos.
const (
	EventsDriverLog   = "log"
	EventsDriverKafka = "kafka"
	EventsDriverNone  = "none"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	Sale    SaleConfig
	Events  EventsConfig
	Tracing TracingConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env           string // development, staging, production
	Name          string
	LogLevel      string
	StorageDriver string // postgres | memory
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig solo se valida el token; la emisión ocurre en el servicio de autenticación.
type JWTConfig struct {
	Secret string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SaleConfig parámetros de cálculo de ventas y fidelización.
type SaleConfig struct {
	TaxRate            decimal.Decimal // ej. 0.18
	InvoicePrefix      string
	LoyaltyPointValue  decimal.Decimal // valor monetario de un punto
	LoyaltyAccrualRate decimal.Decimal // puntos ganados por unidad monetaria del total
}

// EventsConfig sink de notificaciones salientes.
type EventsConfig struct {
	Driver  string
	Buffer  int
	Brokers []string
	Topic   string
}

// TracingConfig exportación OTLP de trazas.
type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, SALE_TAX_RATE, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	taxRate, err := getDecimal(v, "SALE_TAX_RATE", "0.18")
	if err != nil {
		return nil, err
	}
	pointValue, err := getDecimal(v, "LOYALTY_POINT_VALUE", "1")
	if err != nil {
		return nil, err
	}
	accrual, err := getDecimal(v, "LOYALTY_ACCRUAL_RATE", "0.01")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:           getString(v, "APP_ENV", "development"),
			Name:          getString(v, "APP_NAME", "pos-ledger"),
			LogLevel:      getString(v, "LOG_LEVEL", "info"),
			StorageDriver: getString(v, "STORAGE_DRIVER", StorageDriverPostgres),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "pos_ledger"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			Secret: getString(v, "JWT_SECRET", ""),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Sale: SaleConfig{
			TaxRate:            taxRate,
			InvoicePrefix:      getString(v, "SALE_INVOICE_PREFIX", "INV"),
			LoyaltyPointValue:  pointValue,
			LoyaltyAccrualRate: accrual,
		},
		Events: EventsConfig{
			Driver:  getString(v, "EVENTS_DRIVER", EventsDriverLog),
			Buffer:  getInt(v, "EVENTS_BUFFER", 256),
			Brokers: splitList(getString(v, "KAFKA_BROKERS", "localhost:9092")),
			Topic:   getString(v, "KAFKA_TOPIC", "pos.inventory.events"),
		},
		Tracing: TracingConfig{
			Enabled:  getBool(v, "OTEL_ENABLED", false),
			Endpoint: getString(v, "OTEL_ENDPOINT", "localhost:4318"),
		},
	}

	if cfg.App.StorageDriver != StorageDriverPostgres && cfg.App.StorageDriver != StorageDriverMemory {
		return nil, fmt.Errorf("STORAGE_DRIVER desconocido: %q", cfg.App.StorageDriver)
	}
	if cfg.Sale.TaxRate.IsNegative() || !cfg.Sale.LoyaltyPointValue.IsPositive() {
		return nil, fmt.Errorf("SALE_TAX_RATE debe ser >= 0 y LOYALTY_POINT_VALUE > 0")
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) && v.GetString(key) != "" {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	switch v.Get(key).(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return def
		}
		return n
	default:
		return v.GetInt(key)
	}
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) || v.GetString(key) == "" {
		return def
	}
	b, err := strconv.ParseBool(v.GetString(key))
	if err != nil {
		return def
	}
	return b
}

func getDecimal(v *viper.Viper, key, def string) (decimal.Decimal, error) {
	raw := getString(v, key, def)
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s inválido (%q): %w", key, raw, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
