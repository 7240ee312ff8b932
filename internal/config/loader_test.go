package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/churn/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8501")
			convey.So(cfg.PredictURL, convey.ShouldEqual, "http://localhost:8000/predict")
			convey.So(cfg.PredictTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.HighRiskThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CHURN_ADDR", ":8080")
			_ = os.Setenv("CHURN_PREDICT_URL", "https://churn.example.com/predict")
			_ = os.Setenv("CHURN_PREDICT_TIMEOUT_MS", "2500")
			_ = os.Setenv("CHURN_HIGH_RISK_THRESHOLD", "0.7")
			_ = os.Setenv("CHURN_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PredictURL, convey.ShouldEqual, "https://churn.example.com/predict")
				convey.So(cfg.PredictTimeout(), convey.ShouldEqual, 2500*time.Millisecond)
				convey.So(cfg.HighRiskThreshold, convey.ShouldEqual, 0.7)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# comment
addr: ":9090"
predict_url: "http://model:8000/predict"
predict_timeout_ms: 3000
log_level: debug
`
			tmpFile := createTempFile("churn-config-*.yaml", yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CHURN_CONFIG", tmpFile)
			_ = os.Setenv("CHURN_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")                           // env
				convey.So(cfg.PredictURL, convey.ShouldEqual, "http://model:8000/predict") // file
				convey.So(cfg.PredictTimeoutMS, convey.ShouldEqual, 3000)                  // file
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")                       // file
				convey.So(cfg.HighRiskThreshold, convey.ShouldEqual, 0.5)                  // default
			})
		})

		convey.Convey("When loading config from a .env file", func() {
			tmpFile := createTempFile("churn-*.env", "CHURN_PREDICT_URL=https://dotenv.example.com/predict\nCHURN_ADDR=:7000\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CHURN_ENV_FILE", tmpFile)
			_ = os.Setenv("CHURN_ADDR", ":6000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then dotenv values apply without overriding the real environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.PredictURL, convey.ShouldEqual, "https://dotenv.example.com/predict")
				convey.So(cfg.Addr, convey.ShouldEqual, ":6000")
			})
		})

		convey.Convey("When the .env file does not exist", func() {
			_ = os.Setenv("CHURN_ENV_FILE", "/non/existent/.env")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile("churn-config-*.yaml", `invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CHURN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CHURN_PREDICT_TIMEOUT_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		cases := map[string]struct {
			key, value, message string
		}{
			"empty addr":         {"CHURN_ADDR", "", "addr must not be empty"},
			"relative URL":       {"CHURN_PREDICT_URL", "/predict", "must use http or https"},
			"ftp URL":            {"CHURN_PREDICT_URL", "ftp://host/predict", "must use http or https"},
			"hostless URL":       {"CHURN_PREDICT_URL", "http:///predict", "must include a host"},
			"zero timeout":       {"CHURN_PREDICT_TIMEOUT_MS", "0", "predict_timeout_ms must be positive"},
			"threshold too high": {"CHURN_HIGH_RISK_THRESHOLD", "1", "high_risk_threshold"},
			"threshold zero":     {"CHURN_HIGH_RISK_THRESHOLD", "0", "high_risk_threshold"},
		}

		for name, tc := range cases {
			convey.Convey("When loading with "+name, func() {
				_ = os.Setenv(tc.key, tc.value)
				defer clearConfigEnvVars()

				cfg, err := config.Load(ctx)

				convey.Convey("Then it should return a validation error", func() {
					convey.So(cfg, convey.ShouldBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.message)
				})
			})
		}
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CHURN_CONFIG",
		"CHURN_ENV_FILE",
		"CHURN_ADDR",
		"CHURN_LOG_LEVEL",
		"CHURN_LOG_FORMAT",
		"CHURN_PREDICT_URL",
		"CHURN_PREDICT_TIMEOUT_MS",
		"CHURN_HIGH_RISK_THRESHOLD",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempFile(pattern, content string) string {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
