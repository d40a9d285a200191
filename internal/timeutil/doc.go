// Package timeutil provides SerializableTimer, a time.AfterFunc
// replacement whose state can be snapshotted, serialized and restored.
// Long-lived timeouts such as transaction timers survive a process
// restart this way.
//
// A running timer keeps a background time.Timer for callback
// execution while exposing deterministic state through TimerSnapshot.
// Snapshots marshal to JSON and later recreate a timer via
// RestoreTimer. Callbacks are runtime-only and must be reattached
// after restoration with SetCallback or Reset:
//
//	timer := timeutil.AfterFunc(5*time.Second, onExpired)
//
//	snap := timer.Snapshot()
//	data, _ := json.Marshal(snap)
//
//	var restored timeutil.TimerSnapshot
//	_ = json.Unmarshal(data, &restored)
//	timer = timeutil.RestoreTimer(&restored)
//	timer.SetCallback(onExpired)
//
// All timer operations are safe for concurrent use.
package timeutil
