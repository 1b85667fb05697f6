package logging

// Standardized structured-log field names shared across components.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldScriptID  = "script_id"
	FieldStage     = "stage"
	FieldMode      = "mode"
	FieldEncoder   = "encoder"
	FieldPercent   = "percent"
	FieldDuration  = "duration"
	FieldPath      = "path"
	FieldExitCode  = "exit_code"
)
