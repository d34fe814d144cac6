package errors

// Error code constants
// Format: CATEGORY_SPECIFIC_DETAIL

const (
	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Ingestion (INGEST_) ====================
	IngestRemoteFetchFailed = "INGEST_REMOTE_FETCH_FAILED"
	IngestLookupFailed      = "INGEST_ENTITY_LOOKUP_FAILED"
	IngestCreateFailed      = "INGEST_ENTITY_CREATE_FAILED"
	IngestBatchInProgress   = "INGEST_BATCH_IN_PROGRESS"
	IngestRunNotFound       = "INGEST_RUN_NOT_FOUND"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadInvalidTarget   = "UPLOAD_INVALID_TARGET"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR"
	InternalExternalAPI = "INTERNAL_EXTERNAL_API"
)
