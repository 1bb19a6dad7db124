package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Redirector = NopRedirector{}
	_ Redirector = RedirectFunc(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
