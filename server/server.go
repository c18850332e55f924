package server

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/wfunc/whosaidit/broadcast"
	"github.com/wfunc/whosaidit/config"
	"github.com/wfunc/whosaidit/logger"
	"github.com/wfunc/whosaidit/monitor"
	"github.com/wfunc/whosaidit/network"
	"github.com/wfunc/whosaidit/persistence"
	"github.com/wfunc/whosaidit/question"
	"github.com/wfunc/whosaidit/room"
	"github.com/wfunc/whosaidit/round"
	gamerpc "github.com/wfunc/whosaidit/rpc"
	"github.com/wfunc/whosaidit/services"
	"github.com/wfunc/whosaidit/session"
	"github.com/wfunc/whosaidit/timer"
)

const (
	heartbeatInterval = 30 * time.Second
	qrSize            = 320
	metricsNamespace  = "whosaidit"
)

type GameServer struct {
	cfg            config.ServerConfig
	version        string
	router         *httprouter.Router
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	engine         *round.Engine
	timers         *timer.TimerManager
	monitor        *monitor.Monitor
	rpcServer      *gamerpc.Server
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// NewGameServer wires the game together. db may be nil, which disables the
// archive and the RPC queries that read it.
func NewGameServer(cfg *config.Config, pool *question.Pool, db persistence.Database, version string) (*GameServer, error) {
	s := &GameServer{
		cfg:            cfg.Server,
		version:        version,
		roomManager:    room.NewRoomManager(),
		sessionManager: session.NewManager(),
		timers:         timer.NewTimerManager(timer.DefaultResolution),
		monitor:        monitor.NewMonitor(metricsNamespace),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)

	opts := []round.Option{
		round.WithSettings(settingsFrom(cfg.Game)),
		round.WithRand(round.NewRand(cfg.Game.Seed)),
		round.WithMetrics(s.monitor),
	}
	if db != nil {
		opts = append(opts, round.WithArchive(db))
	}
	s.engine = round.NewEngine(s.sessionManager, s.roomManager, pool, s.broadcaster, s.timers, opts...)

	// 初始化RPC服务器
	if cfg.Server.RPCAddress != "" {
		gameService := gamerpc.NewGameService(services.NewRecordService(db))
		rpcServer, err := gamerpc.NewServer(cfg.Server.RPCAddress, gameService)
		if err != nil {
			s.timers.Stop()
			return nil, err
		}
		s.rpcServer = rpcServer
	}

	s.monitor.PublishExpvar()
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func settingsFrom(g config.GameConfig) round.Settings {
	return round.Settings{
		DefaultRounds:   g.DefaultRounds,
		MaxRounds:       g.MaxRounds,
		TruthBonus:      g.TruthBonus,
		QuestionDelay:   g.QuestionDelay,
		RoundDelay:      g.RoundDelay,
		GameOverDelay:   g.GameOverDelay,
		SubjectFallback: g.SubjectFallback,
	}
}

func (s *GameServer) routes() *httprouter.Router {
	mux := httprouter.New()
	mux.GET("/ws", s.handleWebSocket)
	mux.GET("/healthz", s.handleHealthCheck)
	mux.GET("/version", s.handleVersion)
	mux.GET("/rooms/:room/qr", s.handleRoomQR)
	mux.Handler(http.MethodGet, "/metrics", s.monitor.Handler())
	mux.Handler(http.MethodGet, "/debug/vars", expvar.Handler())
	return mux
}

// Handler exposes the router, mainly for httptest.
func (s *GameServer) Handler() http.Handler {
	return s.router
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown tells every client, stops accepting work and waits for in-flight
// HTTP requests up to ctx's deadline.
func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		s.broadcaster.PublishToAll(network.EventNotice, network.MessagePayload{Message: "The server is shutting down."})

		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		s.timers.Stop()
		err = s.httpServer.Shutdown(ctx)

		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
	})
	return err
}

func (s *GameServer) handleHealthCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Ok\n"))
}

func (s *GameServer) handleVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("whosaidit v" + s.version + "\n"))
}

// handleRoomQR renders a PNG QR code pointing at the join URL for a room.
func (s *GameServer) handleRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("room")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	png, err := qrcode.Encode(s.joinURL(r, roomID), qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *GameServer) joinURL(r *http.Request, roomID string) string {
	base := s.cfg.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + url.QueryEscape(roomID)
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(wsConn network.Connection) {
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()
	wsConn.SetHeartbeat(heartbeatInterval)

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.engine.Disconnect(sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		env, err := wsConn.ReadEnvelope()
		if err != nil {
			if errors.Is(err, network.ErrMalformedFrame) {
				logger.Log.Debugf("Session %s sent a malformed frame: %v", sess.GetID(), err)
				continue
			}
			return
		}

		start := time.Now()
		s.monitor.IncMessagesReceived(env.Event)
		s.handleEnvelope(sess, env)
		s.monitor.ObserveMessageLatency(time.Since(start))
	}
}

func (s *GameServer) handleEnvelope(sess *session.Session, env *network.Envelope) {
	switch env.Event {
	case network.EventHeartbeat:
		sess.Touch()
	case network.EventJoin:
		var req network.JoinRequest
		if decode(sess, env, &req) {
			s.engine.Join(sess.GetID(), req.Room, req.Name)
		}
	case network.EventRequestStart:
		var req network.StartRequest
		if decode(sess, env, &req) {
			s.engine.Start(sess.GetID(), string(req.MaxRounds))
		}
	case network.EventSubmitAnswer:
		var req network.AnswerRequest
		if decode(sess, env, &req) {
			s.engine.SubmitAnswer(sess.GetID(), req.Text)
		}
	case network.EventSubmitVote:
		var req network.VoteRequest
		if decode(sess, env, &req) {
			s.engine.SubmitVote(sess.GetID(), req.TruthIndex, req.FunnyIndex)
		}
	case network.EventLeave:
		s.engine.Leave(sess.GetID())
	default:
		logger.Log.Infof("Unknown event %q from session %s", env.Event, sess.GetID())
	}
}

// decode unmarshals env.Data into v. An absent payload leaves v zero.
func decode(sess *session.Session, env *network.Envelope, v interface{}) bool {
	if len(env.Data) == 0 {
		return true
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		logger.Log.Debugf("Session %s sent a bad %s payload: %v", sess.GetID(), env.Event, err)
		return false
	}
	return true
}
