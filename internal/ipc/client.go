package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Daemon.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Daemon.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status snapshot.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Daemon.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Daemon.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail reads daemon log lines starting at the requested offset.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Daemon.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues a podcast generation and returns the receipt.
func (c *Client) Submit(req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.client.Call("Generation.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodesList returns episodes, optionally filtered by owner.
func (c *Client) EpisodesList(owner string) (*ListResponse, error) {
	var resp ListResponse
	if err := c.client.Call("Episodes.List", ListRequest{Owner: owner}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodesDescribe returns a single episode by id.
func (c *Client) EpisodesDescribe(id string) (*DescribeResponse, error) {
	var resp DescribeResponse
	if err := c.client.Call("Episodes.Describe", DescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EpisodesDelete removes a single episode by id.
func (c *Client) EpisodesDelete(id string) (*DeleteResponse, error) {
	var resp DeleteResponse
	if err := c.client.Call("Episodes.Delete", DeleteRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
