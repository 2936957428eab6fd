package record

// Record is one normalized test failure from a DataDog CSV export.
// Records are immutable after construction. ID is unique within a
// catalog and stable across reloads of the same input; see DeriveID.
// Timestamp is carried as the raw export string and never reparsed.
type Record struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	TestFile  string `json:"test_file"`
	TestName  string `json:"test_name"`
	Message   string `json:"error_message"`
	Summary   string `json:"summary"`
}
