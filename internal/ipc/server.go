package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"podforge/internal/daemon"
	"podforge/internal/logging"
	"podforge/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	registrations := []struct {
		name    string
		service any
	}{
		{"Daemon", &daemonService{daemon: d, logger: logger, ctx: ctx}},
		{"Generation", &generationService{daemon: d, logger: logger, ctx: ctx}},
		{"Episodes", &episodesService{daemon: d, ctx: ctx}},
	}
	for _, reg := range registrations {
		if err := rpcServer.RegisterName(reg.name, reg.service); err != nil {
			listener.Close()
			return nil, fmt.Errorf("register rpc service %s: %w", reg.name, err)
		}
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

// daemonService answers lifecycle and status calls.
type daemonService struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *daemonService) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *daemonService) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *daemonService) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *daemonService) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	return nil
}

func (s *daemonService) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *daemonService) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}

	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}

	// Bound follow calls so a quiet log cannot hold the RPC open forever.
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}

	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

// generationService answers submission calls.
type generationService struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *generationService) Submit(req SubmitRequest, resp *SubmitResponse) error {
	receipt, err := s.daemon.GenerationService().Submit(s.ctx, req)
	if err != nil {
		return err
	}
	resp.Receipt = receipt
	if s.logger != nil {
		s.logger.Info("generation submitted via IPC",
			logging.String(logging.FieldJobID, receipt.JobID),
			logging.String(logging.FieldEpisodeName, receipt.EpisodeName))
	}
	return nil
}

// episodesService answers episode queries.
type episodesService struct {
	daemon *daemon.Daemon
	ctx    context.Context
}

func (s *episodesService) List(req ListRequest, resp *ListResponse) error {
	episodes, err := s.daemon.EpisodeService().List(s.ctx, req.Owner)
	if err != nil {
		return err
	}
	resp.Episodes = episodes
	return nil
}

func (s *episodesService) Describe(req DescribeRequest, resp *DescribeResponse) error {
	episode, err := s.daemon.EpisodeService().Describe(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if episode == nil {
		return fmt.Errorf("episode %s not found", req.ID)
	}
	resp.Episode = *episode
	return nil
}

func (s *episodesService) Delete(req DeleteRequest, resp *DeleteResponse) error {
	deleted, err := s.daemon.EpisodeService().Delete(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Deleted = deleted
	return nil
}
