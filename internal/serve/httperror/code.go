package httperror

const (
	Code400_0 = "400_0" // Invalid request body.
	Code400_1 = "400_1" // Tenant could not be resolved from the request host.
	Code401_0 = "401_0" // Not authorized.
	Code404_0 = "404_0" // Resource not found.
	Code409_0 = "409_0" // The resource is not in the status the operation requires.
	Code409_1 = "409_1" // A unique name could not be allocated.
	Code429_0 = "429_0" // Too many requests.
	Code500_0 = "500_0" // An internal error occurred while processing this request.
	Code500_1 = "500_1" // Cannot retrieve the tenant from the context.
	Code502_0 = "502_0" // A downstream dependency failed.
)
