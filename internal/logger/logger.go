package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "startuppush"

// Init 配置全局 zerolog，format 为 console 时输出可读格式
func Init(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Str("service", serviceName).Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// Ctx 取出请求上下文里的 logger (带 request_id / trace_id)，没有时退回全局 logger
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &log.Logger
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}
