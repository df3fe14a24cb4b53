// Package types defines shared configuration and error types for the
// document translator.
package types

// Config is the persisted application configuration.
type Config struct {
	// OpenAI-compatible endpoint used for translation.
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIModel   string `json:"openai_model"`

	// TargetLanguage is the translation target, e.g. "ru".
	TargetLanguage string `json:"target_language"`

	// HuridocsURL is the layout analysis service endpoint.
	HuridocsURL string `json:"huridocs_url"`
	// HuridocsImage is the docker image run when the service is managed
	// locally.
	HuridocsImage string `json:"huridocs_image"`

	// DetectorModelPath points at the local layout detection ONNX model;
	// empty disables the local detector.
	DetectorModelPath string `json:"detector_model_path"`

	// Layout engine tuning.
	MergeOverlapThreshold float64 `json:"merge_overlap_threshold"`
	LineGapFactor         float64 `json:"line_gap_factor"`
	DeglueMinGap          float64 `json:"deglue_min_gap"`
	SpreadEnabled         bool    `json:"spread_enabled"`
	SpreadForceHalf       bool    `json:"spread_force_half"`
	// SpreadExceptions is a 1-based page set, e.g. "1,3-5".
	SpreadExceptions string `json:"spread_exceptions"`

	// Pages restricts processing to a 1-based page set; empty means all.
	Pages string `json:"pages"`

	// Concurrency is the number of pages processed in parallel.
	Concurrency int `json:"concurrency"`

	WorkDirectory string `json:"work_directory"`
	LastInput     string `json:"last_input"`
}

// ProcessPhase is the coarse state of a document run.
type ProcessPhase string

const (
	PhaseIdle        ProcessPhase = "idle"
	PhaseDetecting   ProcessPhase = "detecting"
	PhaseRefining    ProcessPhase = "refining"
	PhaseTranslating ProcessPhase = "translating"
	PhaseExporting   ProcessPhase = "exporting"
	PhaseComplete    ProcessPhase = "complete"
	PhaseError       ProcessPhase = "error"
)

// Status reports run progress to callers.
type Status struct {
	Phase    ProcessPhase `json:"phase"`
	Progress int          `json:"progress"` // 0-100
	Message  string       `json:"message"`
	Error    string       `json:"error,omitempty"`
}

// ErrorCode classifies application errors.
type ErrorCode string

const (
	ErrNetwork      ErrorCode = "NETWORK_ERROR"
	ErrDetect       ErrorCode = "DETECT_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrAPICall      ErrorCode = "API_CALL_ERROR"
	ErrAPIRateLimit ErrorCode = "API_RATE_LIMIT"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrTranslation  ErrorCode = "TRANSLATION_ERROR"
	ErrExport       ErrorCode = "EXPORT_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError carries an error code alongside the message and cause.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates an AppError with the given code, message and
// optional cause.
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// NewAppErrorWithDetails creates an AppError carrying extra detail text.
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Details: details, Cause: cause}
}
