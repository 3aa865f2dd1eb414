package common

const (
	// AppName is the name of the application
	AppName = "cita-watcher"

	// SnapshotPrefix is the object prefix for page captures stored in GCS
	SnapshotPrefix = "snapshots"
)
