package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/oresmash/smashdb/internal/config"
	"github.com/oresmash/smashdb/internal/metrics"
)

const defaultMySQLPort = 3306

// Server is the MySQL driver. It owns a bounded pool and leases one handle
// per statement.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Callers beyond the pool bound
//     wait up to the acquisition timeout for a free handle.
type Server struct {
	executor
	db   *sqlx.DB
	pool config.PoolConfig

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	inUse     atomic.Int64
	highWater atomic.Int64
}

// PoolStats is a snapshot of handle usage.
type PoolStats struct {
	// InUse is the number of handles leased to statements right now.
	InUse int
	// MaxInUse is the most handles ever leased at the same time.
	MaxInUse int
	// DB is the database/sql view of the pool.
	DB sql.DBStats
}

// NewServer opens the pool described by cfg and verifies that the server is
// reachable before returning.
func NewServer(ctx context.Context, cfg config.MySQLConfig, logger *zap.Logger) (*Server, error) {
	dsn, err := mysqlDSN(cfg)
	if err != nil {
		return nil, newError(KindConfiguration, "new", BackendServer, err)
	}
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, newError(KindConnection, "new", BackendServer, err)
	}
	return newServer(ctx, db, cfg.Pool, logger)
}

// newServer applies the pool policy to db and takes ownership of it. It is
// separate from NewServer so the pool behaviour can run against any driver.
func newServer(ctx context.Context, db *sqlx.DB, pool config.PoolConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pool.MaxOpen < 1 {
		pool.MaxOpen = 1
	}

	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(max(pool.MinIdle, pool.MaxOpen))
	db.SetConnMaxIdleTime(pool.IdleTimeout)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	s := &Server{
		executor: executor{backend: BackendServer, logger: logger},
		db:       db,
		pool:     pool,
		done:     make(chan struct{}),
	}

	if err := s.Connect(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.topUp()

	if pool.MinIdle > 0 && pool.IdleTimeout > 0 {
		s.wg.Add(1)
		go s.keepWarm(pool.IdleTimeout / 2)
	}

	logger.Info("database pool opened",
		zap.String("backend", s.backend.String()),
		zap.Int("max_open", pool.MaxOpen),
		zap.Int("min_idle", pool.MinIdle),
		zap.Duration("acquire_timeout", pool.AcquireTimeout),
	)
	return s, nil
}

// mysqlDSN builds the driver DSN from a "host:port" address.
func mysqlDSN(cfg config.MySQLConfig) (string, error) {
	if cfg.Host == "" {
		return "", errors.New("database.MySQL.host is required")
	}
	host, port := cfg.Host, strconv.Itoa(defaultMySQLPort)
	if h, p, err := net.SplitHostPort(cfg.Host); err == nil {
		host, port = h, p
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid port in database.MySQL.host %q", cfg.Host)
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, port)
	mc.DBName = cfg.Database
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

// Connect checks a handle out of the pool, pings it, and returns it.
func (s *Server) Connect(ctx context.Context) error {
	l, err := s.lease(ctx, "connect", "")
	if err != nil {
		return err
	}
	defer l.release()

	if err := l.conn.PingContext(ctx); err != nil {
		return newError(KindConnection, "connect", s.backend, err)
	}
	return nil
}

// Disconnect shuts the pool down. Handles leased at that moment are closed
// as they are released.
func (s *Server) Disconnect() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
		err = s.db.Close()
		s.logger.Info("database pool closed", zap.String("backend", s.backend.String()))
	})
	if err != nil {
		return newError(KindConnection, "disconnect", s.backend, err)
	}
	return nil
}

// IsConnected reports whether the pool is still open. It says nothing about
// the health of individual handles.
func (s *Server) IsConnected() bool {
	return !s.closed.Load()
}

func (s *Server) Prepared(ctx context.Context, query string, bind Binder) error {
	start := time.Now()
	err := s.withLease(ctx, "prepared", query, func(conn *sqlx.Conn) error {
		return s.exec(ctx, conn, query, bind)
	})
	return s.finishPrepared(query, start, err)
}

func (s *Server) Query(ctx context.Context, query string, bind Binder) ([]Row, error) {
	start := time.Now()
	var rows []Row
	err := s.withLease(ctx, "query", query, func(conn *sqlx.Conn) error {
		var err error
		rows, err = s.query(ctx, conn, query, bind)
		return err
	})
	return s.finishQuery(start, rows, err)
}

// Stats returns a snapshot of handle usage.
func (s *Server) Stats() PoolStats {
	return PoolStats{
		InUse:    int(s.inUse.Load()),
		MaxInUse: int(s.highWater.Load()),
		DB:       s.db.Stats(),
	}
}

func (s *Server) sqlDB() *sql.DB { return s.db.DB }

// withLease runs fn on a leased handle and releases it on every path,
// including a panicking binder.
func (s *Server) withLease(ctx context.Context, op, query string, fn func(*sqlx.Conn) error) error {
	l, err := s.lease(ctx, op, query)
	if err != nil {
		return err
	}
	defer l.release()
	return fn(l.conn)
}

type lease struct {
	s        *Server
	conn     *sqlx.Conn
	watchdog *time.Timer
	once     sync.Once
}

// lease acquires a handle, waiting at most the acquisition timeout.
func (s *Server) lease(ctx context.Context, op, query string) (*lease, error) {
	if s.closed.Load() {
		return nil, errClosed(op, s.backend)
	}

	actx := ctx
	if s.pool.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.pool.AcquireTimeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := s.db.Connx(actx)
	metrics.AcquireDuration.WithLabelValues(s.backend.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("no handle available after %s: %w", s.pool.AcquireTimeout, err)
		}
		return nil, newError(KindConnection, op, s.backend, err)
	}

	n := s.inUse.Add(1)
	for {
		hw := s.highWater.Load()
		if n <= hw || s.highWater.CompareAndSwap(hw, n) {
			break
		}
	}

	l := &lease{s: s, conn: conn}
	if s.pool.LeakThreshold > 0 {
		held := time.Now()
		l.watchdog = time.AfterFunc(s.pool.LeakThreshold, func() {
			metrics.LeakedHandlesTotal.WithLabelValues(s.backend.String()).Inc()
			s.logger.Warn("connection leak detection triggered",
				zap.String("backend", s.backend.String()),
				zap.String("op", op),
				zap.String("query", query),
				zap.Duration("held", time.Since(held)),
			)
		})
	}
	return l, nil
}

func (l *lease) release() {
	l.once.Do(func() {
		if l.watchdog != nil {
			l.watchdog.Stop()
		}
		l.s.inUse.Add(-1)
		_ = l.conn.Close()
	})
}

// keepWarm tops the idle set up to the configured minimum until the pool
// is closed.
func (s *Server) keepWarm(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.topUp()
		}
	}
}

// topUp holds MinIdle handles at once, opening new ones where the idle set
// is short, then returns them all to the idle set.
func (s *Server) topUp() {
	st := s.db.Stats()
	if st.Idle >= s.pool.MinIdle {
		return
	}
	want := min(s.pool.MinIdle, st.Idle+(st.MaxOpenConnections-st.OpenConnections))

	conns := make([]*sqlx.Conn, 0, want)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for range want {
		if s.closed.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		c, err := s.db.Connx(ctx)
		cancel()
		if err != nil {
			s.logger.Debug("idle top-up stopped", zap.Error(err))
			return
		}
		conns = append(conns, c)
	}
}
