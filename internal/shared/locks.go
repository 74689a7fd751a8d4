package shared

import "fmt"

// ImportLockKey builds the redis key guarding one user's running import.
func ImportLockKey(userID string) string {
	return fmt.Sprintf("odyssey:imports:users:%s:lock", userID)
}

// AlertScanLockKey builds the redis key guarding a scheduled alert scan run.
func AlertScanLockKey() string {
	return "odyssey:alerts:scan:lock"
}
