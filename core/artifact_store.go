package core

// ArtifactStore defines the interface for artifact persistence. Implementations
// should be thread-safe and scope artifacts by task identifier. Short method
// names (Save/Get/List/Delete) mirror other store interfaces for consistency.
type ArtifactStore interface {
	Save(taskID, artifactID string, data []byte) error
	Get(taskID, artifactID string) ([]byte, error)
	List(taskID string) ([]string, error)
	Delete(taskID, artifactID string) error
}
