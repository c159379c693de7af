package loggers

import (
	"github.com/sirupsen/logrus"

	"github.com/sadullah47/libra/internal/repo"
)

const (
	Mempool   = "mempool"
	Broadcast = "broadcast"
	Consensus = "consensus"
	Commit    = "commit"
	Validator = "validator"
	Reconfig  = "reconfig"
	App       = "app"
)

var w *loggerWrapper

type loggerWrapper struct {
	loggers map[string]*logrus.Entry
}

func Initialize(config *repo.Config) {
	m := make(map[string]*logrus.Entry)
	m[Mempool] = newWithModule(Mempool, config.Log.Module.Mempool, config)
	m[Broadcast] = newWithModule(Broadcast, config.Log.Module.Broadcast, config)
	m[Consensus] = newWithModule(Consensus, config.Log.Module.Consensus, config)
	m[Commit] = newWithModule(Commit, config.Log.Module.Commit, config)
	m[Validator] = newWithModule(Validator, config.Log.Module.Validator, config)
	m[Reconfig] = newWithModule(Reconfig, config.Log.Module.Reconfig, config)
	m[App] = newWithModule(App, config.Log.Level, config)

	w = &loggerWrapper{loggers: m}
}

func newWithModule(name string, level string, config *repo.Config) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetReportCaller(config.Log.ReportCaller)
	logger.SetLevel(parseLevel(level))
	return logger.WithField("module", name)
}

func parseLevel(level string) logrus.Level {
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lv
}

func Logger(name string) logrus.FieldLogger {
	if w == nil {
		Initialize(repo.DefaultConfig())
	}
	return w.loggers[name]
}

// ReloadLevels applies new per-module levels from a refreshed config.
func ReloadLevels(config *repo.Config) {
	if w == nil {
		return
	}
	levels := map[string]string{
		Mempool:   config.Log.Module.Mempool,
		Broadcast: config.Log.Module.Broadcast,
		Consensus: config.Log.Module.Consensus,
		Commit:    config.Log.Module.Commit,
		Validator: config.Log.Module.Validator,
		Reconfig:  config.Log.Module.Reconfig,
		App:       config.Log.Level,
	}
	for name, level := range levels {
		if entry, ok := w.loggers[name]; ok {
			entry.Logger.SetLevel(parseLevel(level))
		}
	}
}
