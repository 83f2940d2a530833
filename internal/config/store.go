package config

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Store hands out the current settings snapshot. Readers call Current once per tick and keep the pointer.
type Store struct {
	current atomic.Pointer[Settings]
	log     *zap.Logger

	mu      sync.Mutex
	watcher *viper.Viper
	stopSig chan os.Signal
}

func NewStore(initial *Settings, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{log: log}
	s.current.Store(initial)
	return s
}

func (s *Store) Current() *Settings {
	return s.current.Load()
}

// Swap validates next and publishes it. The previous snapshot stays in place on error.
func (s *Store) Swap(next *Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.current.Store(next)
	return nil
}

// Reload re-reads the settings file and environment.
func (s *Store) Reload() error {
	path := s.Current().Runtime.ConfigFile
	base := Defaults()
	if path != "" {
		fromFile, err := LoadFile(path)
		if err != nil {
			s.log.Error("config reload failed, keeping previous settings", zap.Error(err))
			return err
		}
		base = *fromFile
	}
	next := applyEnv(base)
	next.Runtime.ConfigFile = path
	if err := s.Swap(&next); err != nil {
		s.log.Error("config reload rejected, keeping previous settings", zap.Error(err))
		return err
	}
	s.log.Info("config reloaded", zap.String("file", path))
	return nil
}

// Watch reloads on settings file changes and on SIGHUP until Close.
func (s *Store) Watch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopSig != nil {
		return
	}

	if path := s.Current().Runtime.ConfigFile; path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			s.log.Warn("config watch disabled", zap.String("file", path), zap.Error(err))
		} else {
			v.OnConfigChange(func(e fsnotify.Event) {
				s.log.Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
				_ = s.Reload()
			})
			v.WatchConfig()
			s.watcher = v
		}
	}

	s.stopSig = make(chan os.Signal, 1)
	signal.Notify(s.stopSig, syscall.SIGHUP)
	go func(ch chan os.Signal) {
		for range ch {
			_ = s.Reload()
		}
	}(s.stopSig)
}

// Close stops the SIGHUP listener. viper offers no way to stop its file watcher, it dies with the process.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopSig != nil {
		signal.Stop(s.stopSig)
		close(s.stopSig)
		s.stopSig = nil
	}
}

// Provider is the read side of Store, consumed once per tick.
type Provider interface {
	Current() *Settings
}

type fixed struct{ s *Settings }

func (f fixed) Current() *Settings { return f.s }

// Fixed serves one snapshot forever. Used by one-shot commands and tests.
func Fixed(s *Settings) Provider { return fixed{s: s} }
