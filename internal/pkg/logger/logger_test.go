package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	got := sanitizeKVs([]interface{}{"postgres_password", "hunter2", "name", "Alice", "dangling"})
	if len(got) != 5 {
		t.Fatalf("unexpected length: %d (%v)", len(got), got)
	}
	if got[1] != "[REDACTED]" {
		t.Fatalf("password not redacted: %v", got[1])
	}
	if got[3] != "Alice" {
		t.Fatalf("plain value altered: %v", got[3])
	}
	if got[4] != "dangling" {
		t.Fatalf("dangling key dropped: %v", got)
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	log := Nop().With("component", "test")
	log.Info("hello", "dsn", "postgres://u:p@h/db")
	log.Sync()
}
