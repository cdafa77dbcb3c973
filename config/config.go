// Package config loads and hot-reloads the masterserver's configuration.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jacobpatterson1549/rts-masterserver/server/log"
	"github.com/spf13/viper"
)

type (
	// Config holds the values recognized by the masterserver.
	Config struct {
		// Port is the TCP port the server listens on.
		Port int
		// AcceptedVersion is the protocol version clients must present during the handshake.
		AcceptedVersion []int
		// Database describes how to reach the credential store.
		Database DatabaseConfig
	}

	// DatabaseConfig describes the credential-store backend and its connection parameters.
	DatabaseConfig struct {
		// Kind selects the backend implementation: postgres, mongo, firestore, or memory.
		Kind string
		// Host is the database server's network address.
		Host string
		// DBName is the database or collection namespace.
		DBName string
		// User authenticates to the database.
		User string
		// Password authenticates to the database.
		Password string
		// Port is the database server's TCP port.
		Port int
	}
)

// Loader reads Config from a viper instance and watches the backing file for
// changes, invoking a callback with each successfully reloaded Config.
type Loader struct {
	v   *viper.Viper
	log log.Logger

	mu  sync.RWMutex
	cfg Config
}

// NewLoader creates a Loader bound to v, setting the keys and defaults the
// masterserver recognizes.
func NewLoader(v *viper.Viper, l log.Logger) *Loader {
	v.SetEnvPrefix("RTS_MASTERSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("port", 7777)
	v.SetDefault("acceptedVersion", []int{1, 0, 0})
	v.SetDefault("database.kind", "postgres")
	v.SetDefault("database.port", 5432)
	return &Loader{
		v:   v,
		log: l,
	}
}

// Load reads the configuration once and stores the validated result.
func (l *Loader) Load() (Config, error) {
	cfg, err := l.read()
	if err != nil {
		return Config{}, err
	}
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the most recently loaded configuration.
func (l *Loader) Current() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

func (l *Loader) read() (Config, error) {
	cfg := Config{
		Port:            l.v.GetInt("port"),
		AcceptedVersion: l.v.GetIntSlice("acceptedVersion"),
		Database: DatabaseConfig{
			Kind:     l.v.GetString("database.kind"),
			Host:     l.v.GetString("database.host"),
			DBName:   l.v.GetString("database.dbname"),
			User:     l.v.GetString("database.user"),
			Password: l.v.GetString("database.password"),
			Port:     l.v.GetInt("database.port"),
		},
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validating configuration: %w", err)
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	switch {
	case cfg.Port < 1 || cfg.Port > 65535:
		return fmt.Errorf("invalid port: %d", cfg.Port)
	case len(cfg.AcceptedVersion) == 0:
		return fmt.Errorf("acceptedVersion required")
	}
	return nil
}

// Watch reloads the configuration whenever the backing file changes,
// invoking onChange with each successfully reloaded Config. It returns once
// the watcher is established; the watch itself runs until the process exits
// or the returned fsnotify.Watcher is closed.
func (l *Loader) Watch(onChange func(Config)) (*fsnotify.Watcher, error) {
	configFile := l.v.ConfigFileUsed()
	if configFile == "" {
		return nil, nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Add(configFile); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching config file: %w", err)
	}
	go l.watchLoop(watcher, configFile, onChange)
	return watcher, nil
}

func (l *Loader) watchLoop(watcher *fsnotify.Watcher, configFile string, onChange func(Config)) {
	var lastReload time.Time
	const debounce = 100 * time.Millisecond
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if since := time.Since(lastReload); since < debounce {
				continue
			}
			lastReload = time.Now()
			if err := l.v.ReadInConfig(); err != nil {
				l.log.Printf("re-reading config file %s: %v", configFile, err)
				continue
			}
			cfg, err := l.Load()
			if err != nil {
				l.log.Printf("reloading config: %v", err)
				continue
			}
			l.log.Printf("configuration reloaded from %s", configFile)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.log.Printf("watching config file: %v", err)
		}
	}
}
