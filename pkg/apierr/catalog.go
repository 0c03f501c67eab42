package apierr

import "net/http"

// --- Common ---

func InvalidRequestBody() *Error {
	return New(CodeInvalidRequestBody, http.StatusBadRequest, "Invalid request body")
}

func InvalidID(entity string) *Error {
	return New(CodeInvalidID, http.StatusBadRequest, "Invalid "+entity+" ID")
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, http.StatusInternalServerError, "Internal server error", cause)
}

// --- Run ---

func RunNotFound() *Error {
	return New(CodeRunNotFound, http.StatusNotFound, "Run not found")
}

func RunDeleteFailed(cause error) *Error {
	return Wrap(CodeRunDeleteFailed, http.StatusInternalServerError, "Failed to delete run", cause)
}

// --- File selection ---

func FileRequired() *Error {
	return New(CodeFileRequired, http.StatusBadRequest, "A file part is required")
}

func FileNameTaken(name string) *Error {
	return New(CodeFileNameTaken, http.StatusConflict, "A file named "+name+" is already selected")
}

func FileNotFound() *Error {
	return New(CodeFileNotFound, http.StatusNotFound, "File not found")
}

func StagingDisabled() *Error {
	return New(CodeStagingDisabled, http.StatusServiceUnavailable, "Payload staging is not configured")
}

func StagingFailed(cause error) *Error {
	return Wrap(CodeStagingFailed, http.StatusInternalServerError, "Failed to stage file payload", cause)
}

func SelectionUpdateFailed(cause error) *Error {
	return Wrap(CodeSelectionUpdateFailed, http.StatusInternalServerError, "Failed to update selection", cause)
}

// --- Stage machine ---

func GateClosed(stage string) *Error {
	return New(CodeGateClosed, http.StatusConflict, "Cannot leave the "+stage+" stage yet")
}

func WrongStage(op string) *Error {
	return New(CodeWrongStage, http.StatusConflict, op+" is not available in the current stage")
}

func BatchInFlight() *Error {
	return New(CodeBatchInFlight, http.StatusConflict, "A batch operation is already in flight")
}

func AtFirstStage() *Error {
	return New(CodeAtFirstStage, http.StatusConflict, "Already at the first stage")
}

func AtLastStage() *Error {
	return New(CodeAtLastStage, http.StatusConflict, "Already at the last stage")
}

// --- Batch operations ---

func BatchFailed(cause error) *Error {
	return Wrap(CodeBatchFailed, http.StatusBadGateway, "Batch operation failed", cause)
}

func InvalidTargets(reason string) *Error {
	return New(CodeInvalidTargets, http.StatusBadRequest, "Invalid database targets: "+reason)
}

// --- Report ---

func ReportFailed(cause error) *Error {
	return Wrap(CodeReportFailed, http.StatusInternalServerError, "Failed to build report", cause)
}

func ReportArchiveFailed(cause error) *Error {
	return Wrap(CodeReportArchiveFailed, http.StatusInternalServerError, "Failed to archive report", cause)
}
