// Package townrecord is the client for the remote town record service. It
// owns no state: every exported call is one remote request whose failure is
// returned as a *town.ServiceError.
package townrecord

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	apperrors "github.com/louisbranch/covey.town/internal/platform/errors"
	platformgrpc "github.com/louisbranch/covey.town/internal/platform/grpc"
	"github.com/louisbranch/covey.town/internal/platform/timeouts"
	"github.com/louisbranch/covey.town/internal/town"
	"google.golang.org/grpc"
)

// Client calls the town record service over one gRPC connection.
type Client struct {
	conn           grpc.ClientConnInterface
	closer         func() error
	requestTimeout time.Duration
}

// NewClient wraps an existing connection. The caller keeps ownership of conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{
		conn:           conn,
		requestTimeout: timeouts.GRPCRequest,
	}
}

// Dial connects to the record service at addr and waits for its health check.
// The returned client owns the connection; release it with Close.
func Dial(ctx context.Context, addr string, logf func(string, ...any), opts ...grpc.DialOption) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("town record address is required")
	}
	if logf == nil {
		logf = log.Printf
	}
	conn, err := platformgrpc.DialWithHealth(ctx, platformgrpc.DialConfig{
		Target:        addr,
		Timeout:       timeouts.GRPCDial,
		HealthService: ServiceName,
		Logf:          logf,
		Options:       opts,
	})
	if err != nil {
		return nil, err
	}
	client := NewClient(conn)
	client.closer = conn.Close
	return client, nil
}

// Close releases the connection when the client owns it.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// ListTowns returns the publicly listed towns in service order.
func (c *Client) ListTowns(ctx context.Context) ([]town.Summary, error) {
	var out ListTownsResponse
	if err := c.invoke(ctx, "list towns", ListTownsMethod, &ListTownsRequest{}, &out); err != nil {
		return nil, err
	}
	towns := make([]town.Summary, 0, len(out.Towns))
	for _, info := range out.Towns {
		towns = append(towns, town.Summary{
			ID:               info.CoveyTownID,
			FriendlyName:     info.FriendlyName,
			CurrentOccupancy: info.CurrentOccupancy,
			MaximumOccupancy: info.MaximumOccupancy,
			IsPubliclyListed: info.IsPubliclyListed,
		})
	}
	return towns, nil
}

// CreateTown creates a town and returns its identifier and update password.
func (c *Client) CreateTown(ctx context.Context, req town.CreateRequest) (town.Created, error) {
	var out CreateTownResponse
	in := &CreateTownRequest{FriendlyName: req.FriendlyName, IsPubliclyListed: req.IsPubliclyListed}
	if err := c.invoke(ctx, "create town", CreateTownMethod, in, &out); err != nil {
		return town.Created{}, err
	}
	if out.CoveyTownID == "" {
		return town.Created{}, &town.ProtocolViolation{Op: "create town", Code: apperrors.CodeTownIDEmpty, Detail: "service returned no town ID"}
	}
	return town.Created{TownID: out.CoveyTownID, Password: out.CoveyTownPassword}, nil
}

// UpdateTown changes a town's name and listing flag.
func (c *Client) UpdateTown(ctx context.Context, req town.UpdateRequest) error {
	in := &UpdateTownRequest{
		CoveyTownID:       req.TownID,
		CoveyTownPassword: req.Password,
		FriendlyName:      req.FriendlyName,
		IsPubliclyListed:  req.IsPubliclyListed,
	}
	return c.invoke(ctx, "update town", UpdateTownMethod, in, &Empty{})
}

// DeleteTown deletes a town.
func (c *Client) DeleteTown(ctx context.Context, req town.DeleteRequest) error {
	in := &DeleteTownRequest{CoveyTownID: req.TownID, CoveyTownPassword: req.Password}
	return c.invoke(ctx, "delete town", DeleteTownMethod, in, &Empty{})
}

// JoinTown requests session bootstrap data for username in townID.
func (c *Client) JoinTown(ctx context.Context, username, townID string) (town.JoinInitData, error) {
	var out JoinTownResponse
	in := &JoinTownRequest{UserName: username, CoveyTownID: townID}
	if err := c.invoke(ctx, "join town", JoinTownMethod, in, &out); err != nil {
		return town.JoinInitData{}, err
	}
	return town.JoinInitData{
		TownID:             townID,
		UserID:             out.CoveyUserID,
		SessionToken:       out.CoveySessionToken,
		ProviderCredential: out.ProviderVideoToken,
		FriendlyName:       out.FriendlyName,
		IsPubliclyListed:   out.IsPubliclyListed,
	}, nil
}

func (c *Client) invoke(ctx context.Context, op, method string, in, out any) error {
	if c == nil || c.conn == nil {
		return &town.ServiceError{Op: op, Code: apperrors.CodeServiceUnavailable, Message: "town record client is not configured"}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}
	if err := c.conn.Invoke(ctx, method, in, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return town.NewServiceError(op, err)
	}
	return nil
}
