package rpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"roomrisk/internal/app/dto"
)

type ClientConfig struct {
	Addr        string
	CallTimeout time.Duration
}

// Client is a typed AvailabilityEngine client speaking the JSON codec.
type Client struct {
	conn        *grpc.ClientConn
	callTimeout time.Duration
}

func NewClient(cfg ClientConfig, opts ...grpc.DialOption) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("rpc: address required")
	}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, err
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{conn: conn, callTimeout: timeout}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*dto.AvailabilityResult, error) {
	out := new(dto.AvailabilityResult)
	if err := c.invoke(ctx, "CheckAvailability", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FindAlternatives(ctx context.Context, req *FindAlternativesRequest) (*dto.Alternatives, error) {
	out := new(dto.Alternatives)
	if err := c.invoke(ctx, "FindAlternatives", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DetectConflicts(ctx context.Context, req *DetectConflictsRequest) (*dto.ConflictReport, error) {
	out := new(dto.ConflictReport)
	if err := c.invoke(ctx, "DetectConflicts", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out)
}

var _ EngineServer = (*Client)(nil)
