// Package logger wraps zerolog behind a small structured API shared by
// every stagekit package.
//
// Output is either human-oriented console (colored level and service
// tags, short timestamps) or plain JSON for collectors; Config decides,
// typically loaded from the service YAML:
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// Loggers are scoped rather than global: WithComponent tags a logger
// for one subsystem, and WithContext picks up pipeline id, stage, and
// worker markers previously attached to a context.Context, so log
// lines from concurrent workers can be attributed without threading a
// logger through every call:
//
//	log := logger.WithComponent("pipeline")
//	log.Info("stage drained", logger.Fields(logger.FieldStage, "resize"))
package logger
