//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 40010, 40011 and 40013 exist, 40012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrMalformedBody          = Error{Code: 40001, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedProposalID    = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed proposal ID")}
	ErrProposalNotFound       = Error{Code: 40003, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("proposal not found")}
	ErrProposalFinalized      = Error{Code: 40004, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("proposal is already finalized")}
	ErrIndexOutOfRange        = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("leaf index out of range")}
	ErrInsufficientFunds      = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("insufficient balance")}
	ErrUnauthorizedFinalizer  = Error{Code: 40007, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("only the proposer can finalize")}
	ErrConcurrentModification = Error{Code: 40008, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("proposal changed during finalization, retry")}
	ErrNothingToFinalize      = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no ballot updates to finalize")}
	ErrBalanceOverflow        = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("balance overflow")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrProofGenerationFailed      = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("proof generation failed")}
	ErrProofVerificationFailed    = Error{Code: 50004, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("proof verification failed")}
)
