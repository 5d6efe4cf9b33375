// Package errors provides structured errors shared by covey.town clients and
// the town record service boundary.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input validation
	CodeUsernameEmpty     Code = "USERNAME_EMPTY"
	CodeTownIDEmpty       Code = "TOWN_ID_EMPTY"
	CodeTownNameEmpty     Code = "TOWN_NAME_EMPTY"
	CodeTownPasswordEmpty Code = "TOWN_PASSWORD_EMPTY"
	CodeInvalidRequest    Code = "INVALID_REQUEST"

	// Town record service
	CodeTownNotFound        Code = "TOWN_NOT_FOUND"
	CodeTownFull            Code = "TOWN_FULL"
	CodeTownPasswordInvalid Code = "TOWN_PASSWORD_INVALID"
	CodeSessionRejected     Code = "SESSION_REJECTED"
	CodeServiceUnavailable  Code = "SERVICE_UNAVAILABLE"

	// Real-time handoff
	CodeCredentialMissing Code = "CREDENTIAL_MISSING"
	CodeCredentialReused  Code = "CREDENTIAL_REUSED"
	CodeCredentialExpired Code = "CREDENTIAL_EXPIRED"
	CodeConnectFailed     Code = "CONNECT_FAILED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeUsernameEmpty,
		CodeTownIDEmpty,
		CodeTownNameEmpty,
		CodeTownPasswordEmpty,
		CodeInvalidRequest:
		return codes.InvalidArgument

	case CodeTownNotFound:
		return codes.NotFound

	case CodeTownFull:
		return codes.ResourceExhausted

	case CodeTownPasswordInvalid:
		return codes.PermissionDenied

	case CodeSessionRejected,
		CodeCredentialReused,
		CodeCredentialExpired:
		return codes.FailedPrecondition

	case CodeServiceUnavailable,
		CodeConnectFailed:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

// CodeFromGRPC picks the closest domain code for a bare gRPC status code.
func CodeFromGRPC(code codes.Code) Code {
	switch code {
	case codes.NotFound:
		return CodeTownNotFound
	case codes.ResourceExhausted:
		return CodeTownFull
	case codes.PermissionDenied, codes.Unauthenticated:
		return CodeTownPasswordInvalid
	case codes.FailedPrecondition:
		return CodeSessionRejected
	case codes.Unavailable, codes.DeadlineExceeded:
		return CodeServiceUnavailable
	case codes.InvalidArgument:
		return CodeInvalidRequest
	default:
		return CodeUnknown
	}
}
