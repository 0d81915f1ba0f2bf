package logging

// StandardFields are the field names every component logs with, so entries from one
// fixture can be correlated across the sandbox, transform and diff stages.
//
//nolint:gochecknoglobals // Field name table
var StandardFields = struct {
	Fixture    string
	FixtureDir string
	SandboxDir string
	FilePath   string

	Component     string
	Operation     string
	Phase         string
	CorrelationID string
	Timestamp     string
	DurationMs    string

	Rule        string
	Transformer string
	Command     string
	FileCount   string
	Mismatches  string
	ExitCode    string

	Error     string
	ErrorType string
	Status    string
}{
	Fixture:    "fixture",
	FixtureDir: "fixture_dir",
	SandboxDir: "sandbox_dir",
	FilePath:   "path",

	Component:     "component",
	Operation:     "operation",
	Phase:         "phase",
	CorrelationID: "correlation_id",
	Timestamp:     "@timestamp",
	DurationMs:    "duration_ms",

	Rule:        "rule",
	Transformer: "transformer",
	Command:     "command",
	FileCount:   "paths",
	Mismatches:  "mismatches",
	ExitCode:    "exit_code",

	Error:     "error",
	ErrorType: "error_type",
	Status:    "status",
}

// ComponentNames identify the emitting package; they also select the --debug-* flags
//
//nolint:gochecknoglobals // Component name table
var ComponentNames = struct {
	Fixture   string
	Sandbox   string
	Diff      string
	Transform string
	Config    string
	CLI       string
}{
	Fixture:   "fixture",
	Sandbox:   "sandbox",
	Diff:      "tree-diff",
	Transform: "transform",
	Config:    "config",
	CLI:       "cli",
}

// OperationTypes name the steps of a run in the operation field
//
//nolint:gochecknoglobals // Operation name table
var OperationTypes = struct {
	ConfigLoad     string
	ConfigValidate string
	FixtureList    string
	SuiteRun       string
	FixturePrepare string
	SandboxCopy    string
	SubjectRun     string
	FileTransform  string
	TreeCompare    string
}{
	ConfigLoad:     "config_load",
	ConfigValidate: "config_validate",
	FixtureList:    "fixture_list",
	SuiteRun:       "suite_run",
	FixturePrepare: "fixture_prepare",
	SandboxCopy:    "sandbox_copy",
	SubjectRun:     "subject_run",
	FileTransform:  "file_transform",
	TreeCompare:    "tree_compare",
}
