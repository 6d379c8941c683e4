package config

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	assert.EqualValues(t, DefaultAppConfig, *cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ZYNCD_ADDR", "127.0.0.1:9090")
	t.Setenv("ZYNCD_DATA_DIR", "/var/lib/zyncd")
	t.Setenv("ZYNCD_MAX_BYTES", "128KiB")
	t.Setenv("ZYNCD_RECONCILE_INTERVAL", "90s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
	assert.Equal(t, "/var/lib/zyncd", cfg.DataDir)
	assert.EqualValues(t, 128<<10, cfg.MaxBytes)
	assert.Equal(t, 90*time.Second, cfg.ReconcileInterval)
}

func TestS3EnvNesting(t *testing.T) {
	t.Setenv("ZYNCD_BLOB_BACKEND", "s3")
	t.Setenv("ZYNCD_S3_ENDPOINT", "minio.internal:9000")
	t.Setenv("ZYNCD_S3_ACCESS_KEY", "ak")
	t.Setenv("ZYNCD_S3_SECRET_KEY", "sk")
	t.Setenv("ZYNCD_S3_BUCKET", "clips")
	t.Setenv("ZYNCD_S3_USE_SSL", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	assert.Equal(t, "s3", cfg.BlobBackend)
	assert.Equal(t, "minio.internal:9000", cfg.S3.Endpoint)
	assert.Equal(t, "clips", cfg.S3.Bucket)
	assert.True(t, cfg.S3.UseSSL)
}

func TestS3BackendRequiresSettings(t *testing.T) {
	t.Setenv("ZYNCD_BLOB_BACKEND", "s3")
	if _, err := Load(); err == nil {
		t.Fatal("s3 backend without settings must fail validation")
	}
}

func TestInvalidBlobBackend(t *testing.T) {
	t.Setenv("ZYNCD_BLOB_BACKEND", "ftp")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestValidPaths(t *testing.T) {
	valid := []string{
		"data",
		"/var/lib/zyncd",
		"./data",
		"relative/path/to/data",
		"nested/dir/structure",
	}
	for _, p := range valid {
		t.Setenv("ZYNCD_DATA_DIR", p)
		cfg, err := Load()
		if err != nil {
			t.Errorf("expected valid path %q, got error: %v", p, err)
			continue
		}
		if cfg.DataDir != p {
			t.Errorf("expected DataDir %q, got %q", p, cfg.DataDir)
		}
	}
}

func TestInvalidPaths(t *testing.T) {
	invalid := []string{
		"",
		".",
		"/",
		"//",
		"../data",
		"data/..",
		"data/../../../etc",
	}
	for _, p := range invalid {
		t.Setenv("ZYNCD_DATA_DIR", p)
		if _, err := Load(); err == nil {
			t.Errorf("expected error for invalid path %q, got nil", p)
		}
	}
}

func TestValidIPPort(t *testing.T) {
	type sample struct {
		Addr string `validate:"ip_port"`
	}

	v := validator.New()
	if err := v.RegisterValidation("ip_port", validIPPort); err != nil {
		t.Fatalf("register validation: %v", err)
	}

	tests := []struct {
		name  string
		addr  string
		valid bool
	}{
		{name: "empty", addr: "", valid: false},
		{name: "missing_port", addr: "127.0.0.1", valid: false},
		{name: "just_colon_port", addr: ":8080", valid: true},
		{name: "loopback_ipv4", addr: "127.0.0.1:8080", valid: true},
		{name: "ipv6_loopback", addr: "[::1]:8080", valid: true},
		{name: "hostname_not_ip", addr: "localhost:8080", valid: false},
		{name: "non_numeric_port", addr: "127.0.0.1:http", valid: false},
		{name: "port_zero", addr: "127.0.0.1:0", valid: false},
		{name: "port_max_valid", addr: "127.0.0.1:65535", valid: true},
		{name: "port_overflow", addr: "127.0.0.1:65536", valid: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := sample{Addr: tc.addr}
			err := v.Struct(&s)
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"131072", 131072, false},
		{"128KiB", 128 << 10, false},
		{"1MiB", 1 << 20, false},
		{"2G", 2 << 30, false},
		{"", 0, true},
		{"KiB", 0, true},
		{"-5", 0, true},
		{"12x", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseSize(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSize(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSize(%q)=%d want %d", tc.in, got, tc.want)
		}
	}
}
