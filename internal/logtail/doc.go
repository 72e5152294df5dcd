// Package logtail reads the tail of the diagnostic log for `wallboxctl logs diag`.
//
// Read keeps a ring buffer of maxLines so only the requested tail is held in
// memory regardless of file size. Format turns the zap JSON lines written by
// internal/logging back into a compact one-line text form:
//
//	{"level":"error","ts":"2025-03-04T05:06:07.890Z","msg":"[ERROR] Failed to get status","data":{"error":"wallbox unreachable"}}
//	→ 2025-03-04T05:06:07.890Z ERROR [ERROR] Failed to get status data={"error":"wallbox unreachable"}
package logtail
