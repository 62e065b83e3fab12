package exitcode

// Exit codes for the forclink CLI.
// Schedulers can use these to decide whether a rerun can help.
const (
	// Success - run completed
	Success = 0

	// ConfigError - missing or invalid configuration or flags
	// Don't retry: fix the config first
	ConfigError = 1

	// InputError - basin or grid source unreadable or malformed
	// Don't retry: investigate the data
	InputError = 2

	// LinkError - nearest search or linking failed (empty input, out of range, inconsistent ids)
	// Don't retry: the inputs do not overlap
	LinkError = 3

	// StorageError - failed to write outputs, PostGIS or MinIO
	// Retry with backoff
	StorageError = 4
)
