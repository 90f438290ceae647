package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/arise/logger"
	"github.com/wfunc/arise/services"
)

// ServiceName 注册到 net/rpc 的服务名
const ServiceName = "Progression"

const callTimeout = 10 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	server   *rpc.Server
}

// NewServer creates a new RPC server listening on addr. Services are added with Register.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		server:   rpc.NewServer(),
	}, nil
}

// Register exposes the progression operations under ServiceName.
func (s *Server) Register(svc *ProgressionService) error {
	return s.server.RegisterName(ServiceName, svc)
}

// Addr 实际监听地址，端口为 0 时可用来获取分配的端口
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests. It returns once the listener is closed.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
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

// ProgressionService 运维接口：查看玩家、发放经验、触发成就检查
type ProgressionService struct {
	svc *services.Services
}

func NewProgressionService(svc *services.Services) *ProgressionService {
	return &ProgressionService{svc: svc}
}

type PlayerArgs struct {
	PlayerID uint
}

type ProfileReply struct {
	Profile services.Profile
}

type GrantXPArgs struct {
	PlayerID uint
	Amount   int
}

type GrantXPReply struct {
	Outcome services.XPOutcome
}

type AchievementsReply struct {
	Unlocked []string
	XP       int
}

func (ps *ProgressionService) GetProfile(args *PlayerArgs, reply *ProfileReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	profile, err := ps.svc.Player.GetProfile(ctx, args.PlayerID)
	if err != nil {
		return err
	}
	reply.Profile = *profile
	return nil
}

func (ps *ProgressionService) GrantXP(args *GrantXPArgs, reply *GrantXPReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	out, err := ps.svc.Player.GrantXP(ctx, args.PlayerID, args.Amount)
	if err != nil {
		return err
	}
	reply.Outcome = *out
	return nil
}

func (ps *ProgressionService) CheckAchievements(args *PlayerArgs, reply *AchievementsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	unlocked, err := ps.svc.Achievement.Check(ctx, args.PlayerID)
	if err != nil {
		return err
	}
	for _, a := range unlocked {
		reply.Unlocked = append(reply.Unlocked, a.Name)
		reply.XP += a.XPReward
	}
	return nil
}
