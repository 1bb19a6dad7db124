// Package gologger resolves the loggers used by the admin client and its
// background refresh worker.
package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	ClientLoggerName = "admin-client"
	WorkerLoggerName = "admin-client.refresh-worker"
)

// Loggers bundles the resolved loggers for one process.
type Loggers struct {
	Provider  glog.LoggerProvider
	Client    glog.Logger
	Worker    glog.Logger
	JobLogger job.Logger
	JobLogs   job.LoggerProvider
}

// Resolve uses precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	resolvedProvider, resolvedLogger := glog.Resolve(name, provider, logger)
	return resolvedProvider, glog.Ensure(resolvedLogger)
}

// ForClient resolves the client logger and derives the worker logger from
// the same provider, bridged to go-job for queue workers.
func ForClient(provider glog.LoggerProvider, logger glog.Logger) Loggers {
	resolvedProvider, clientLogger := Resolve(ClientLoggerName, provider, logger)
	workerLogger := clientLogger
	if resolvedProvider != nil {
		workerLogger = glog.Ensure(resolvedProvider.GetLogger(WorkerLoggerName))
	}
	return Loggers{
		Provider:  resolvedProvider,
		Client:    clientLogger,
		Worker:    workerLogger,
		JobLogger: ToJobLogger(workerLogger),
		JobLogs:   ToJobProvider(resolvedProvider),
	}
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}
