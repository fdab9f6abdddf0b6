/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package log

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

import (
	"github.com/natefinch/lumberjack"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// LogLevel represents the level of logging.
	LogLevel int8
	// LogType represents the channel a record is written to besides the main log.
	LogType string
)

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel = LogLevel(zapcore.DebugLevel)
	// InfoLevel is the default logging priority.
	InfoLevel = LogLevel(zapcore.InfoLevel)
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel = LogLevel(zapcore.WarnLevel)
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel = LogLevel(zapcore.ErrorLevel)
	// PanicLevel logs a message, then panics.
	PanicLevel = LogLevel(zapcore.PanicLevel)
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel = LogLevel(zapcore.FatalLevel)

	_minLevel = DebugLevel
	_maxLevel = FatalLevel

	MainLog = LogType("main")
	TxLog   = LogType("tx")
	GCLog   = LogType("gc")

	defaultLoggerLevel = InfoLevel
)

type LoggingConfig struct {
	LogName       string `default:"trxmgr.log" yaml:"log_name" json:"log_name"`
	LogPath       string `yaml:"log_path" json:"log_path"`
	LogLevel      int    `default:"0" yaml:"log_level" json:"log_level"`
	LogMaxSize    int    `default:"10" yaml:"log_max_size" json:"log_max_size"`
	LogMaxBackups int    `default:"5" yaml:"log_max_backups" json:"log_max_backups"`
	LogMaxAge     int    `default:"30" yaml:"log_max_age" json:"log_max_age"`
	LogCompress   bool   `yaml:"log_compress" json:"log_compress"`
	TxLogName     string `default:"tx.log" yaml:"tx_log_name" json:"tx_log_name"`
	GCLogName     string `default:"gc.log" yaml:"gc_log_name" json:"gc_log_name"`
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	if l == nil {
		return errors.New("can't unmarshal a nil *Level")
	}
	if !l.unmarshalText(text) && !l.unmarshalText(bytes.ToLower(text)) {
		return fmt.Errorf("unrecognized level: %q", text)
	}
	return nil
}

func (l *LogLevel) unmarshalText(text []byte) bool {
	switch string(text) {
	case "debug", "DEBUG":
		*l = DebugLevel
	case "info", "INFO", "": // make the zero value useful
		*l = InfoLevel
	case "warn", "WARN":
		*l = WarnLevel
	case "error", "ERROR":
		*l = ErrorLevel
	case "panic", "PANIC":
		*l = PanicLevel
	case "fatal", "FATAL":
		*l = FatalLevel
	default:
		return false
	}
	return true
}

// Logger is the leveled logging surface shared by the global and composite loggers.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}

var (
	globalMu     sync.RWMutex
	globalLogger *compositeLogger

	defaultLoggingConfig = &LoggingConfig{
		LogName:       "trxmgr.log",
		LogLevel:      int(InfoLevel),
		LogMaxSize:    10,
		LogMaxBackups: 5,
		LogMaxAge:     30,
		TxLogName:     "tx.log",
		GCLogName:     "gc.log",
	}
)

func init() {
	globalLogger = NewCompositeLogger(defaultLoggingConfig)
}

// Init replaces the global logger. An empty LogPath keeps the output on stdout only.
func Init(cfg *LoggingConfig) {
	l := NewCompositeLogger(cfg)
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

func current() *compositeLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

type compositeLogger struct {
	mainLog *zap.SugaredLogger
	txLog   *zap.SugaredLogger
	gcLog   *zap.SugaredLogger
}

func NewCompositeLogger(cfg *LoggingConfig) *compositeLogger {
	return &compositeLogger{
		mainLog: NewLogger(MainLog, cfg),
		txLog:   NewLogger(TxLog, cfg),
		gcLog:   NewLogger(GCLog, cfg),
	}
}

func NewLogger(logType LogType, cfg *LoggingConfig) *zap.SugaredLogger {
	syncer := zapcore.AddSync(os.Stdout)
	if len(cfg.LogPath) > 0 {
		syncer = zapcore.NewMultiWriteSyncer(zapcore.AddSync(buildLumberJack(logType, cfg)), syncer)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	encoder := zapcore.NewConsoleEncoder(encoderConfig)
	level := zap.DebugLevel
	if logType == MainLog {
		level = getLoggerLevel(cfg.LogLevel)
	}
	core := zapcore.NewCore(encoder, syncer, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Sugar()
}

func buildLumberJack(logType LogType, cfg *LoggingConfig) *lumberjack.Logger {
	var logName string
	switch logType {
	case TxLog:
		logName = cfg.TxLogName
	case GCLog:
		logName = cfg.GCLogName
	default:
		logName = cfg.LogName
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogPath, logName),
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}
}

func getLoggerLevel(level int) zapcore.Level {
	logLevel := LogLevel(level)
	if logLevel < _minLevel || logLevel > _maxLevel {
		return zapcore.Level(defaultLoggerLevel)
	}
	return zapcore.Level(logLevel)
}

func (c *compositeLogger) channel(logType LogType) *zap.SugaredLogger {
	switch logType {
	case TxLog:
		return c.txLog
	case GCLog:
		return c.gcLog
	default:
		return nil
	}
}

func (c *compositeLogger) Debug(v ...interface{}) {
	c.mainLog.Debug(v...)
}

func (c *compositeLogger) Debugf(format string, v ...interface{}) {
	c.mainLog.Debugf(format, v...)
}

func (c *compositeLogger) DebugfWithLogType(logType LogType, format string, v ...interface{}) {
	c.mainLog.Debugf(format, v...)
	if ch := c.channel(logType); ch != nil {
		ch.Debugf(format, v...)
	}
}

func (c *compositeLogger) Info(v ...interface{}) {
	c.mainLog.Info(v...)
}

func (c *compositeLogger) Infof(format string, v ...interface{}) {
	c.mainLog.Infof(format, v...)
}

func (c *compositeLogger) InfofWithLogType(logType LogType, format string, v ...interface{}) {
	c.mainLog.Infof(format, v...)
	if ch := c.channel(logType); ch != nil {
		ch.Infof(format, v...)
	}
}

func (c *compositeLogger) Warn(v ...interface{}) {
	c.mainLog.Warn(v...)
}

func (c *compositeLogger) Warnf(format string, v ...interface{}) {
	c.mainLog.Warnf(format, v...)
}

func (c *compositeLogger) WarnfWithLogType(logType LogType, format string, v ...interface{}) {
	c.mainLog.Warnf(format, v...)
	if ch := c.channel(logType); ch != nil {
		ch.Warnf(format, v...)
	}
}

func (c *compositeLogger) Error(v ...interface{}) {
	c.mainLog.Error(v...)
}

func (c *compositeLogger) Errorf(format string, v ...interface{}) {
	c.mainLog.Errorf(format, v...)
}

func (c *compositeLogger) ErrorfWithLogType(logType LogType, format string, v ...interface{}) {
	c.mainLog.Errorf(format, v...)
	if ch := c.channel(logType); ch != nil {
		ch.Errorf(format, v...)
	}
}

func (c *compositeLogger) Fatal(v ...interface{}) {
	c.mainLog.Fatal(v...)
}

func (c *compositeLogger) Fatalf(format string, v ...interface{}) {
	c.mainLog.Fatalf(format, v...)
}

// Debug ...
func Debug(v ...interface{}) {
	current().Debug(v...)
}

// Debugf ...
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// DebugfWithLogType ...
func DebugfWithLogType(logType LogType, format string, v ...interface{}) {
	current().DebugfWithLogType(logType, format, v...)
}

// Info ...
func Info(v ...interface{}) {
	current().Info(v...)
}

// Infof ...
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// InfofWithLogType ...
func InfofWithLogType(logType LogType, format string, v ...interface{}) {
	current().InfofWithLogType(logType, format, v...)
}

// Warn ...
func Warn(v ...interface{}) {
	current().Warn(v...)
}

// Warnf ...
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// WarnfWithLogType ...
func WarnfWithLogType(logType LogType, format string, v ...interface{}) {
	current().WarnfWithLogType(logType, format, v...)
}

// Error ...
func Error(v ...interface{}) {
	current().Error(v...)
}

// Errorf ...
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// ErrorfWithLogType ...
func ErrorfWithLogType(logType LogType, format string, v ...interface{}) {
	current().ErrorfWithLogType(logType, format, v...)
}

// Fatal ...
func Fatal(v ...interface{}) {
	current().Fatal(v...)
}

// Fatalf ...
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}
