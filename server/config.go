package server

// Config is the browser server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// DBPath is the SQLite example index written by generate --index.
	// Empty serves an empty in-memory DAG.
	DBPath string

	// ArtifactsDir holds the JSON-lines artifacts and manifest.
	ArtifactsDir string
}
