// Package errors provides structured errors for the rpg-builder project.
//
// Every error carries a Code that maps onto both HTTP statuses and gRPC
// codes, a user facing message, an optional cause and free-form metadata.
//
// # Builder error kinds
//
// The draft workflow surfaces four kinds of failure:
//
//	errors.NotFoundf("draft %s not found", id)   // unknown draft
//	errors.UnknownStep("backstory")               // NOT_FOUND, reason UNKNOWN_STEP
//	errors.Forbidden("draft", id)                 // PERMISSION_DENIED
//	errors.CatalogUnavailable()                   // UNAVAILABLE, retry later
//
// Payload validation goes through the builder, which records a field and a
// machine-checkable Reason for every rejected value:
//
//	vb := errors.NewValidationBuilder()
//	vb.Violationf("skills", errors.ReasonTooMany, "at most %d skills", n)
//	if err := vb.Build(); err != nil {
//	    return nil, err
//	}
//
// Callers inspect results with GetCode, GetReason and GetViolations, or the
// IsX helpers.
//
// # Layer guidelines
//
// Repositories return NotFound for missing records and wrap driver errors.
// Orchestrators validate input and wrap repository errors with context;
// Wrap keeps the original code so a NotFound stays a NotFound.
// Handlers convert with Code.HTTPStatus or ToGRPCError.
package errors
