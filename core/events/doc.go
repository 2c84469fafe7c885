// Package events defines the coordination events emitted on the event bus.
//
// Available event types:
//   - AlertEvent: lifecycle milestone of the coordinator's alert
//   - SendOutcomeEvent: terminal outcome of one contact notification
//   - PingEvent: push ping acknowledgment result for a candidate helper
//   - SnapshotEvent: authoritative alert snapshot accepted by the coordinator
//   - ResponseEvent: authoritative helper response snapshot
package events
