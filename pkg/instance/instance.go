package instance

import "os"

// GetID returns the dispatcher instance identifier or a default value.
func GetID() string {
	if id := os.Getenv("DISPATCHER_ID"); id != "" {
		return id
	}
	return "dispatcher-0"
}
