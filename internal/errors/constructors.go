package errors

// ConfigError creates a fatal configuration error.
func ConfigError(message string) *HappoError {
	return New(CategoryConfig, SeverityFatal, message)
}

// ValidationError creates a fatal validation error.
func ValidationError(message string) *HappoError {
	return New(CategoryValidation, SeverityFatal, message)
}

// AuthError creates an authentication error.
func AuthError(message string) *HappoError {
	return New(CategoryAuth, SeverityFatal, message)
}

// PackagingError wraps an asset hashing/bundling failure.
func PackagingError(err error, message string) *HappoError {
	return Wrap(err, CategoryPackaging, SeverityError, message)
}

// UploadError wraps a network/storage failure during an upload. Uploads are
// retryable at the discretion of the caller, never inside the orchestrator.
func UploadError(err error, message string) *HappoError {
	return WrapRetryable(err, CategoryUpload, SeverityError, message)
}

// RemoteExecutionError wraps a rejection from a target's execute contract.
func RemoteExecutionError(err error, message string) *HappoError {
	return Wrap(err, CategoryRemote, SeverityError, message)
}

// BundlerError wraps a failure from the bundler collaborator.
func BundlerError(err error, message string) *HappoError {
	return Wrap(err, CategoryBundler, SeverityError, message)
}

// StorageError wraps a run-history storage failure.
func StorageError(err error, message string) *HappoError {
	return Wrap(err, CategoryStorage, SeverityWarning, message)
}
