package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/Paintersrp/listingnotes/internal/classify"
	"github.com/Paintersrp/listingnotes/internal/config"
	"github.com/Paintersrp/listingnotes/internal/constants"
	"github.com/Paintersrp/listingnotes/internal/dom"
	"github.com/Paintersrp/listingnotes/internal/engine"
	"github.com/Paintersrp/listingnotes/internal/logging"
	"github.com/Paintersrp/listingnotes/internal/loop"
	"github.com/Paintersrp/listingnotes/internal/mirror"
	"github.com/Paintersrp/listingnotes/internal/store"
)

// Viper keys bound to the root command's persistent flags.
const (
	StoreOverrideKey    = "store_override"
	LogLevelOverrideKey = "log_level_override"
)

type State struct {
	Config     *config.Config
	Home       string
	InstanceID string
	Logger     *slog.Logger

	// initErr is set when the config has no store yet. Commands other than
	// init surface it when they first need the store.
	initErr error
	logOut  io.Writer

	mu         sync.Mutex
	store      store.Store
	mirrors    []*mirror.Mirror
	persistErr error
}

func NewState() (*State, error) {
	home, err := GetHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStateAt(home, os.Stderr)
}

// NewStateAt loads the config under home and logs to logOut.
func NewStateAt(home string, logOut io.Writer) (*State, error) {
	cfg, initErr, err := LoadConfig(home)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	return &State{
		Config:     cfg,
		Home:       home,
		InstanceID: uuid.NewString(),
		Logger:     logger,
		initErr:    initErr,
		logOut:     logOut,
	}, nil
}

func GetHomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory. err: %s", err)
	}

	return home, nil
}

// LoadConfig ensures the config file exists and loads it. A missing store is
// reported separately as a ConfigInitError so that init can still run.
func LoadConfig(home string) (*config.Config, error, error) {
	viper.AddConfigPath(home + constants.ConfigDir)
	viper.SetConfigName(constants.ConfigFile)
	viper.SetConfigType(constants.ConfigFileType)
	_ = viper.ReadInConfig()

	var initErr error
	if err := config.EnsureConfigExists(home); err != nil {
		var cfgErr *config.ConfigInitError
		if !errors.As(err, &cfgErr) {
			return nil, nil, err
		}
		initErr = err
	}

	cfg, err := config.Load(home)
	if err != nil {
		return nil, nil, err
	}
	return cfg, initErr, nil
}

// ApplyFlags rebuilds the logger when a log level flag was given.
func (s *State) ApplyFlags() error {
	level := strings.TrimSpace(viper.GetString(LogLevelOverrideKey))
	if level == "" {
		return nil
	}
	logCfg := s.Config.Log
	logCfg.Level = level
	logger, err := logging.New(logCfg, s.logOut)
	if err != nil {
		return err
	}
	s.Logger = logger
	return nil
}

// StoreDSN is the --store flag when given, otherwise the configured DSN.
func (s *State) StoreDSN() string {
	if dsn := strings.TrimSpace(viper.GetString(StoreOverrideKey)); dsn != "" {
		return dsn
	}
	return s.Config.Store.DSN
}

// Store opens the configured store on first use.
func (s *State) Store(ctx context.Context) (store.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		return s.store, nil
	}

	dsn := s.StoreDSN()
	if strings.TrimSpace(dsn) == "" && s.initErr != nil {
		return nil, s.initErr
	}

	st, err := store.Open(ctx, dsn, store.Options{
		PollInterval: s.Config.Store.PollInterval,
		Logger:       s.Logger,
		Region:       s.Config.Store.Region,
		Endpoint:     s.Config.Store.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	s.Logger.Info("store opened", "dsn", redact(dsn))
	s.store = st
	return st, nil
}

// OpenMirror returns an initialized mirror over the store. Changes from
// other instances are delivered through poster.
func (s *State) OpenMirror(ctx context.Context, poster mirror.Poster) (*mirror.Mirror, error) {
	m, err := s.newMirror(ctx, poster)
	if err != nil {
		return nil, err
	}
	if err := m.Init(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *State) newMirror(ctx context.Context, poster mirror.Poster) (*mirror.Mirror, error) {
	st, err := s.Store(ctx)
	if err != nil {
		return nil, err
	}

	logger := s.Logger
	m, err := mirror.New(st, mirror.Options{
		Origin: s.InstanceID,
		Poster: poster,
		Logger: logger,
		OnPersistError: func(keys []string, err error) {
			logger.Error("changes were not saved", "keys", keys, "err", err)
			s.mu.Lock()
			s.persistErr = fmt.Errorf("failed to save %s: %w", strings.Join(keys, ", "), err)
			s.mu.Unlock()
		},
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.mirrors = append(s.mirrors, m)
	s.mu.Unlock()
	return m, nil
}

// PersistError returns the most recent write that could not be saved.
func (s *State) PersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Classifier builds the card classifier from the engine config.
func (s *State) Classifier() (*classify.Classifier, error) {
	return classify.New(classify.Options{
		ExcludedSurfaces: s.Config.Engine.ExcludedSurfaces,
		MinWidth:         s.Config.Engine.MinCardWidth,
		MinHeight:        s.Config.Engine.MinCardHeight,
		ExtraRule:        s.Config.Engine.ExtraRule,
	})
}

// NewLoop returns a loop ticking at the configured frame interval.
func (s *State) NewLoop() *loop.Loop {
	return loop.New(s.Config.Engine.FrameInterval)
}

// OpenEngine wires an engine for doc on lp and starts it.
func (s *State) OpenEngine(ctx context.Context, doc *dom.Document, lp *loop.Loop) (*engine.Engine, error) {
	classifier, err := s.Classifier()
	if err != nil {
		return nil, err
	}

	m, err := s.newMirror(ctx, lp)
	if err != nil {
		return nil, err
	}

	e, err := engine.New(doc, lp, m, engine.Options{
		Origin:         s.Config.Engine.BaseOrigin,
		AnchorSelector: s.Config.Engine.AnchorSelector,
		Classifier:     classifier,
		Logger:         s.Logger,
	})
	if err != nil {
		return nil, err
	}
	if err := e.Start(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Close flushes and closes every mirror, then the store.
func (s *State) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	mirrors := s.mirrors
	st := s.store
	s.mirrors = nil
	s.store = nil
	s.mu.Unlock()

	var errs []error
	for _, m := range mirrors {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if st != nil {
		if err := st.Close(); err != nil && !errors.Is(err, store.ErrClosed) {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
