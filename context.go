package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/ahmadzakiakmal/shiptrack/config"
	"github.com/ahmadzakiakmal/shiptrack/drafts"
	"github.com/ahmadzakiakmal/shiptrack/intake"
	"github.com/ahmadzakiakmal/shiptrack/repository"
	"github.com/ahmadzakiakmal/shiptrack/shipclient"
	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

const defaultLogLevel = "info"

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.LoadConfig(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.LogLevel = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("configuration validation failed: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the key/value logger used across the service
func newLogger(level string, w io.Writer) (cmtlog.Logger, error) {
	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(w))
	if level == "" {
		level = defaultLogLevel
	}
	logger, err := cmtflags.ParseLogLevel(level, logger, defaultLogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	return logger, nil
}

// stack is the set of collaborators a command wires together
type stack struct {
	repo      *repository.Repository
	drafts    *drafts.Store
	local     *intake.LocalSubmitter
	submitter wizard.Submitter
}

func (s *stack) Close() {
	if s.drafts != nil {
		s.drafts.Close()
	}
	if s.repo != nil {
		s.repo.Close()
	}
}

// openStack connects the database when the node stores shipments itself and
// opens the draft store. requireDB forces the database even when finalize
// goes to a remote service.
func openStack(cfg *config.Config, logger cmtlog.Logger, requireDB bool) (*stack, error) {
	s := &stack{}
	remote := cfg.Shipments.Endpoint != ""

	if requireDB || !remote {
		repo := repository.NewRepository(logger.With("module", "repository"))
		repo.SetRetry(cfg.Database.RetryAttempts, cfg.Database.RetryDelay)
		if err := repo.ConnectDB(cfg.Database.Dialect, cfg.GetDSN()); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.repo = repo
		s.local = intake.NewLocalSubmitter(repo, logger.With("module", "submitter"))
		s.submitter = s.local
	}

	store, err := drafts.Open(drafts.Options{Dir: cfg.Drafts.Dir, TTL: cfg.Drafts.TTL}, logger.With("module", "drafts"))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.drafts = store

	if remote {
		s.submitter = shipclient.NewClient(cfg.Shipments.Endpoint, cfg.Shipments.Timeout)
		logger.Info("Finalize submits to remote shipment service", "endpoint", cfg.Shipments.Endpoint)
	}
	return s, nil
}
