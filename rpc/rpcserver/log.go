package rpcserver

import (
	"os"

	"github.com/abesuite/abec/abelog"
	"google.golang.org/grpc/grpclog"
)

var log = abelog.Disabled

// UseLogger sets the logger to use for the gRPC server.  The grpc package
// logs through the same logger, with its informational messages demoted to
// debug level.  Any calls to this function must be made before a server is
// created and used (it is not concurrent safe).
func UseLogger(logger abelog.Logger) {
	log = logger
	grpclog.SetLoggerV2(grpcLogger{logger})
}

// grpcLogger implements grpclog.LoggerV2 on top of an abelog.Logger.
type grpcLogger struct {
	abelog.Logger
}

var _ grpclog.LoggerV2 = grpcLogger{}

func (l grpcLogger) Info(args ...interface{})                 { l.Debug(args...) }
func (l grpcLogger) Infoln(args ...interface{})               { l.Debug(args...) }
func (l grpcLogger) Infof(format string, args ...interface{}) { l.Debugf(format, args...) }

func (l grpcLogger) Warning(args ...interface{})                 { l.Warn(args...) }
func (l grpcLogger) Warningln(args ...interface{})               { l.Warn(args...) }
func (l grpcLogger) Warningf(format string, args ...interface{}) { l.Warnf(format, args...) }

func (l grpcLogger) Errorln(args ...interface{}) { l.Error(args...) }

func (l grpcLogger) Fatal(args ...interface{}) {
	l.Critical(args...)
	os.Exit(1)
}

func (l grpcLogger) Fatalln(args ...interface{}) {
	l.Critical(args...)
	os.Exit(1)
}

func (l grpcLogger) Fatalf(format string, args ...interface{}) {
	l.Criticalf(format, args...)
	os.Exit(1)
}

// V reports whether verbose grpc logging is enabled.  Only trace level
// enables it.
func (l grpcLogger) V(level int) bool {
	return level <= 0 || l.Level() == abelog.LevelTrace
}
