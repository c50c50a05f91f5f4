// Package logger provides structured logging for igdl on top of zerolog.
//
// Console output is colourised and written to stderr; setting a log file adds
// a second JSON sink. Components receive a Logger through their options and
// fall back to the package-level logger returned by GetLogger.
//
//	_ = logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "downloader")
//	log.InfoWithFields("Download completed", map[string]interface{}{
//	    "path":  path,
//	    "bytes": n,
//	})
package logger
