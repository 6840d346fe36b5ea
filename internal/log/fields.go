package log

// FieldComponent tags every record emitted through a component logger.
const FieldComponent = "component"

// Component names used across the ledger.
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentStorage = "storage"
	ComponentLedger  = "ledger"
	ComponentAuth    = "auth"
	ComponentCSV     = "csv"
	ComponentReport  = "report"
)
