// Package metrics provides build and watch-mode metrics for mirage.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics cost nothing unless enabled:
//
//	svc := build.NewService()                                   // NoopRecorder
//	svc = svc.WithRecorder(metrics.NewPrometheusRecorder(reg))  // when metrics.enabled
//
// When enabled in config.yml, watch mode serves the registry on a separate
// listener via HTTPHandler so the preview server keeps serving only the site.
package metrics
