package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
)

func TestResolvePrecedence(t *testing.T) {
	loggerOnly := &capturingLogger{id: "logger"}
	provider := &capturingProvider{loggers: map[string]*capturingLogger{ClientLoggerName: {id: "provider"}}}

	_, resolved := Resolve(ClientLoggerName, provider, loggerOnly)
	if got := resolved.(*capturingLogger); got.id != "provider" {
		t.Fatalf("expected provider logger precedence, got %q", got.id)
	}

	resolvedProvider, resolved := Resolve(ClientLoggerName, nil, loggerOnly)
	if got := resolved.(*capturingLogger); got.id != "logger" {
		t.Fatalf("expected direct logger when provider is nil, got %q", got.id)
	}
	if resolvedProvider == nil {
		t.Fatalf("expected provider wrapper from logger")
	}

	if _, resolved = Resolve(ClientLoggerName, nil, nil); resolved == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func TestForClient_DerivesWorkerLoggerAndJobBridge(t *testing.T) {
	worker := &capturingLogger{id: "worker"}
	provider := &capturingProvider{loggers: map[string]*capturingLogger{
		ClientLoggerName: {id: "client"},
		WorkerLoggerName: worker,
	}}

	loggers := ForClient(provider, nil)
	if loggers.Client.(*capturingLogger).id != "client" {
		t.Fatalf("expected client logger from provider")
	}
	if loggers.JobLogger == nil || loggers.JobLogs == nil {
		t.Fatalf("expected go-job bridges")
	}

	loggers.JobLogger.Info("refresh job completed", "attempt", 1)
	if worker.lastInfo.msg != "refresh job completed" {
		t.Fatalf("expected bridged message on the worker logger, got %q", worker.lastInfo.msg)
	}
	if worker.lastInfo.args[0] != "attempt" || worker.lastInfo.args[1] != 1 {
		t.Fatalf("expected bridged args, got %#v", worker.lastInfo.args)
	}
}

var (
	_ glog.Logger         = (*capturingLogger)(nil)
	_ glog.LoggerProvider = (*capturingProvider)(nil)
)

type capturingProvider struct {
	loggers map[string]*capturingLogger
}

func (p *capturingProvider) GetLogger(name string) glog.Logger {
	if p == nil || p.loggers[name] == nil {
		return glog.Nop()
	}
	return p.loggers[name]
}

type infoCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	id       string
	lastInfo infoCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Warn(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.lastInfo = infoCall{msg: msg, args: append([]any(nil), args...)}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
