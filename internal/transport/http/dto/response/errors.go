package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrAuthenticationFailed = ErrorResponse{
		Status: "error",
		Error:  "authentication_failed",
	}

	ErrCollectionNotFound = ErrorResponse{
		Status:  "error",
		Error:   "collection_not_found",
		Details: "No collection with this id",
	}

	ErrItemNotFound = ErrorResponse{
		Status:  "error",
		Error:   "item_not_found",
		Details: "No item with this id in the collection",
	}

	ErrNoMatchingCollection = ErrorResponse{
		Status:  "error",
		Error:   "no_matching_collection",
		Details: "Could not find a collection for this title and asset set",
	}

	ErrOperationFailed = ErrorResponse{
		Status:  "error",
		Error:   "operation_failed",
		Details: "The operation could not be completed",
	}
)
