package config

import (
	"time"

	"github.com/spf13/viper"
)

// Sentry config struct
type Sentry struct {
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`
	Environment string  `json:"environment" yaml:"environment"`
	Release     string  `json:"release" yaml:"release"`
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`
}

// Tracer config struct for OpenTelemetry, disabled when Endpoint is empty
type Tracer struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"` // OTLP gRPC endpoint
	ServiceName    string            `json:"service_name" yaml:"service_name"`
	ServiceVersion string            `json:"service_version" yaml:"service_version"`
	Environment    string            `json:"environment" yaml:"environment"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // 0.0 to 1.0
	BatchTimeout   time.Duration     `json:"batch_timeout" yaml:"batch_timeout"`
	ExportTimeout  time.Duration     `json:"export_timeout" yaml:"export_timeout"`
	Insecure       bool              `json:"insecure" yaml:"insecure"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
}

// Observes config struct
type Observes struct {
	Sentry *Sentry
	Tracer *Tracer
}

func getObservesConfig(v *viper.Viper) *Observes {
	return &Observes{
		Sentry: getSentryConfig(v),
		Tracer: getTracerConfig(v),
	}
}

func getSentryConfig(v *viper.Viper) *Sentry {
	return &Sentry{
		Endpoint:    getSentryDSN(v),
		Environment: getStringOrDefault(v, "observes.sentry.environment", v.GetString("run_mode")),
		Release:     v.GetString("observes.sentry.release"),
		SampleRate:  getFloat64OrDefault(v, "observes.sentry.sample_rate", 1.0),
	}
}

// getSentryDSN accepts both observes.sentry.endpoint and observes.sentry.dsn
func getSentryDSN(v *viper.Viper) string {
	if dsn := v.GetString("observes.sentry.endpoint"); dsn != "" {
		return dsn
	}
	return v.GetString("observes.sentry.dsn")
}

func getTracerConfig(v *viper.Viper) *Tracer {
	return &Tracer{
		Endpoint:       v.GetString("observes.tracer.endpoint"),
		ServiceName:    getStringOrDefault(v, "observes.tracer.service_name", v.GetString("app_name")),
		ServiceVersion: v.GetString("observes.tracer.service_version"),
		Environment:    getStringOrDefault(v, "observes.tracer.environment", v.GetString("run_mode")),
		SamplingRate:   getFloat64OrDefault(v, "observes.tracer.sampling_rate", 1.0),
		BatchTimeout:   getDurationOrDefault(v, "observes.tracer.batch_timeout", 5*time.Second),
		ExportTimeout:  getDurationOrDefault(v, "observes.tracer.export_timeout", 30*time.Second),
		Insecure:       v.GetBool("observes.tracer.insecure"),
		Headers:        v.GetStringMapString("observes.tracer.headers"),
	}
}
