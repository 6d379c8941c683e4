// Package config provides layered configuration loading for the zyncd
// service: struct defaults overlaid with ZYNCD_* environment variables,
// decoded with koanf and checked with go-playground/validator.
package config

import (
	"fmt"
	"net"
	"path"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds the merged runtime configuration for the zyncd service.
// Precedence (lowest -> highest): Defaults -> Environment.
type Config struct {
	Addr                 string        `koanf:"addr" validate:"required,ip_port"`
	DataDir              string        `koanf:"data_dir" validate:"required,safe_dir"`
	BlobBackend          string        `koanf:"blob_backend" validate:"required,oneof=filesystem s3"`
	MaxBytes             int64         `koanf:"max_bytes" validate:"gt=0"`
	ReconcileInterval    time.Duration `koanf:"reconcile_interval" validate:"gt=0"`
	MetricsFlushInterval time.Duration `koanf:"metrics_flush_interval" validate:"gt=0"`
	MetricsToken         string        `koanf:"metrics_token"`
	S3                   S3            `koanf:"s3"`
}

// S3 carries object store settings, used only when BlobBackend is "s3".
type S3 struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// DefaultAppConfig is the complete default configuration.
var DefaultAppConfig = Config{
	Addr:                 ":8080",
	DataDir:              "./data",
	BlobBackend:          "filesystem",
	MaxBytes:             512 << 10, // 512 KiB
	ReconcileInterval:    5 * time.Minute,
	MetricsFlushInterval: 30 * time.Second,
	S3: S3{
		Bucket: "zync-clipboards",
	},
}

const envPrefix = "ZYNCD_"

// Load merges defaults with environment variables and validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			// ZYNCD_S3_ENDPOINT -> s3.endpoint; everything else stays flat.
			if rest, ok := strings.CutPrefix(key, "s3_"); ok {
				return "s3." + rest, value
			}
			return key, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToByteSizeHook(),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		return err
	}
	if err := v.RegisterValidation("safe_dir", validSafeDir); err != nil {
		return err
	}
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.BlobBackend == "s3" {
		if cfg.S3.Endpoint == "" || cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" || cfg.S3.Bucket == "" {
			return fmt.Errorf("invalid configuration: s3 backend requires endpoint, access_key, secret_key and bucket")
		}
	}
	return nil
}

// validIPPort accepts host:port where host is empty or a literal IP and port
// is numeric in [1, 65535].
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host != "" && net.ParseIP(host) == nil {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// validSafeDir rejects empty, root, and traversal-bearing directory paths.
func validSafeDir(fl validator.FieldLevel) bool {
	dir := fl.Field().String()
	if dir == "" || dir == "." || dir == "/" {
		return false
	}
	cleaned := path.Clean(strings.ReplaceAll(dir, "\\", "/"))
	if cleaned == "/" || cleaned == "." {
		return false
	}
	for _, seg := range strings.Split(cleaned, "/") {
		if seg == ".." {
			return false
		}
	}
	return dir == cleaned || dir == cleaned+"/" || strings.HasPrefix(dir, "./")
}

// stringToByteSizeHook decodes human-friendly size strings (plain bytes or
// IEC suffixes) into int64 byte counts.
func stringToByteSizeHook() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}
		if t == reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return ParseSize(data.(string))
	}
}

// ParseSize converts a human-friendly size string into a byte count.
// Accepts plain integers (bytes) or IEC/human suffixes: KiB/MiB/GiB
// (case-insensitive) or K/M/G. Examples: "131072" => 131072,
// "128KiB" => 131072, "1MiB" => 1048576.
func ParseSize(s string) (int64, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	upper := strings.ToUpper(s)
	if n, ok, err := parseSizeWithSuffix(upper, orig); ok {
		return n, err
	}
	n, err := parsePositiveInt(upper)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", orig, err)
	}
	return n, nil
}

// parsePositiveInt parses a base-10 int64 and rejects negatives.
func parsePositiveInt(raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative not allowed")
	}
	return n, nil
}

// parseSizeWithSuffix attempts to parse well-known size suffixes. It returns
// (value, true, nil) on success; (0, false, nil) if no suffix matched; or
// (0, true, error) if a suffix matched but parsing failed.
func parseSizeWithSuffix(upper, orig string) (int64, bool, error) {
	type unit struct {
		suffix string
		mult   int64
	}
	units := []unit{
		{"KIB", 1024}, {"MIB", 1024 * 1024}, {"GIB", 1024 * 1024 * 1024},
		{"K", 1024}, {"M", 1024 * 1024}, {"G", 1024 * 1024 * 1024},
	}
	for _, u := range units {
		if strings.HasSuffix(upper, u.suffix) {
			numPart := strings.TrimSpace(upper[:len(upper)-len(u.suffix)])
			if numPart == "" {
				return 0, true, fmt.Errorf("parse size %q: missing number", orig)
			}
			n, err := parsePositiveInt(numPart)
			if err != nil {
				return 0, true, fmt.Errorf("parse size %q: %w", orig, err)
			}
			return n * u.mult, true, nil
		}
	}
	return 0, false, nil
}
