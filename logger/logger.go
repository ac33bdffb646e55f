/*
Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0
*/
package logger

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"
	lc "github.com/redhatinsights/platform-go-middlewares/v2/logging/cloudwatch"
	"github.com/redhatinsights/platform-go-middlewares/v2/request_id"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/studiooh/proposal-export-service/config"
)

// Log is the process wide logger, built on first use by Get.
var Log *zap.SugaredLogger

// cloudwatch flushes its batch on this interval
const cloudwatchFlush = 10 * time.Second

func Get() *zap.SugaredLogger {
	if Log == nil {
		Log = New(config.Get())
	}
	return Log
}

// New builds a logger writing to stdout and, when a CloudWatch log group is
// configured, to CloudWatch as well.
func New(cfg *config.ProposalConfig) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "@timestamp"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.9999Z")

	var encoder zapcore.Encoder
	if cfg.Debug {
		encCfg.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	level := zap.NewAtomicLevelAt(ParseLevel(cfg.LogLevel))
	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)}

	var cwErr error
	if cfg.Logging != nil && cfg.Logging.Region != "" {
		var cw zapcore.Core
		cw, cwErr = cloudwatchCore(cfg, encoder, level)
		if cwErr == nil {
			cores = append(cores, cw)
		}
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Debug {
		opts = append(opts, zap.Development())
	}
	log := zap.New(zapcore.NewTee(cores...), opts...).Sugar()

	if cwErr != nil {
		log.Warnw("cloudwatch logging disabled", "error", cwErr)
	}
	log.Infof("log level set to %s", level.Level().CapitalString())
	return log
}

func cloudwatchCore(cfg *config.ProposalConfig, encoder zapcore.Encoder, level zapcore.LevelEnabler) (zapcore.Core, error) {
	creds := credentials.NewStaticCredentials(cfg.Logging.AccessKeyID, cfg.Logging.SecretAccessKey, "")
	awsCfg := aws.NewConfig().WithRegion(cfg.Logging.Region).WithCredentials(creds)

	writer, err := lc.NewBatchWriterWithDuration(cfg.Logging.LogGroup, cfg.Hostname, awsCfg, cloudwatchFlush)
	if err != nil {
		return nil, err
	}
	return zapcore.NewCore(encoder.Clone(), zapcore.AddSync(writer), level), nil
}

// ParseLevel maps the LOG_LEVEL setting onto a zap level. Anything it does
// not recognise is treated as info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ResponseLogger logs one line per response using the global logger.
func ResponseLogger(next http.Handler) http.Handler {
	return SetResponseLogger(Get())(next)
}

// SetResponseLogger returns a middleware logging each response to l. Server
// errors are logged at error level, client errors at warn.
func SetResponseLogger(l *zap.SugaredLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"route", routePattern(r),
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", request_id.GetReqID(r.Context()),
				"user_agent", r.UserAgent(),
			}

			switch {
			case status >= http.StatusInternalServerError:
				l.Errorw("request failed", fields...)
			case status >= http.StatusBadRequest:
				l.Warnw("request rejected", fields...)
			default:
				l.Infow("request served", fields...)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func RequestIDField(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func OrgIDField(orgID string) zap.Field {
	return zap.String("org_id", orgID)
}

func ProposalIDField(proposalID string) zap.Field {
	return zap.String("proposal_id", proposalID)
}

func FormatField(format string) zap.Field {
	return zap.String("format", format)
}
