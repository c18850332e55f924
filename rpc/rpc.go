package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/whosaidit/logger"
	"github.com/wfunc/whosaidit/models"
	"github.com/wfunc/whosaidit/services"
)

const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	server   *rpc.Server
}

// NewServer listens on addr and serves service under the name "GameService".
func NewServer(addr string, service *GameService) (*Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName("GameService", service); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		server:   server,
	}, nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.server.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService is the struct that exposes RPC methods.
type GameService struct {
	records *services.RecordService
}

func NewGameService(records *services.RecordService) *GameService {
	return &GameService{records: records}
}

// Methods follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type RoomHistoryArgs struct {
	RoomID string
	Limit  int
}

type RoomHistoryReply struct {
	Records []models.GameRecord
}

func (gs *GameService) RoomHistory(args *RoomHistoryArgs, reply *RoomHistoryReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := gs.records.RoomHistory(ctx, args.RoomID, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

type LeaderboardArgs struct {
	Limit int
}

type LeaderboardReply struct {
	Entries []models.LeaderboardEntry
}

func (gs *GameService) Leaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	entries, err := gs.records.Leaderboard(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Entries = entries
	return nil
}
