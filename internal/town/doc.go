// Package town defines the town records exchanged with the town record
// service and the error taxonomy used by the session layer.
//
// Errors fall into three kinds. A ValidationError is a local precondition
// failure and never reaches the network. A ServiceError is a remote
// rejection or an unreachable service. A ProtocolViolation means a
// collaborator broke its contract (for example, a successful join without a
// provider credential) and must abort the flow.
package town
