package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/betterinformatics/shtocker/internal/adapters/driven/config/file"
	"github.com/betterinformatics/shtocker/internal/adapters/driven/exclusions"
	"github.com/betterinformatics/shtocker/internal/adapters/driven/exec"
	"github.com/betterinformatics/shtocker/internal/adapters/driven/storage/sqlite"
	"github.com/betterinformatics/shtocker/internal/adapters/driving/tui"
	"github.com/betterinformatics/shtocker/internal/connectors/dspace"
	"github.com/betterinformatics/shtocker/internal/connectors/filecollection"
	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driving"
	"github.com/betterinformatics/shtocker/internal/core/services"
	"github.com/betterinformatics/shtocker/internal/logger"
)

// EnvToken names the environment variable that overrides the stored
// destination token.
const EnvToken = "SHTOCKER_TOKEN"

// ensureStores opens the config and metadata stores if no wiring (or
// test) has provided them yet.
func ensureStores() (*file.ConfigStore, error) {
	cfg, err := file.NewConfigStore(flagConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	if credentials == nil || journal == nil {
		dataDir := ""
		if flagConfigDir != "" {
			dataDir = filepath.Join(flagConfigDir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open metadata store: %w", err)
		}
		if credentials == nil {
			credentials = store.CredentialsStore()
		}
		if journal == nil {
			journal = store.RunJournal()
		}
	}

	return cfg, nil
}

// destinationToken resolves the bearer token: environment first, then
// the stored credential.
func destinationToken(ctx context.Context) (string, error) {
	if token := os.Getenv(EnvToken); token != "" {
		return token, nil
	}

	creds, err := credentials.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("no destination token: run 'shtocker auth login' or set %s: %w",
			EnvToken, domain.ErrAuthRequired)
	}
	return creds.Token, nil
}

// buildReconciler wires the full engine from configuration. Called
// once per run invocation.
func buildReconciler(ctx context.Context, cfg *file.ConfigStore, interactive bool, year, prefix string) (driving.Reconciler, error) {
	token, err := destinationToken(ctx)
	if err != nil {
		return nil, err
	}

	if prefix == "" {
		prefix = cfg.GetString("source.code_prefix")
	}
	sourceCfg := dspace.Config{
		BaseURL:      cfg.GetString("source.base_url"),
		School:       cfg.GetString("source.school"),
		PageSize:     cfg.GetInt("source.page_size"),
		AcademicYear: year,
		CodePrefix:   prefix,
	}
	catalog := dspace.NewClient(sourceCfg, nil)

	destination := filecollection.NewClient(ctx, cfg.GetString("destination.base_url"), token)

	exclusionsPath := cfg.GetString("exclusions.path")
	if exclusionsPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			exclusionsPath = filepath.Join(home, ".shtocker", "known_bad.txt")
		}
	}
	knownBad, err := exclusions.Load(exclusionsPath)
	if err != nil {
		return nil, fmt.Errorf("load known-bad list: %w", err)
	}
	if err := knownBad.Watch(ctx); err != nil {
		logger.Warn("Could not watch known-bad list: %v", err)
	}

	var gate driving.CandidateGate = services.AutoGate{}
	if interactive {
		gate = tui.Gate{}
	}

	return services.NewEngine(
		catalog,
		destination,
		services.NewInventoryService(destination),
		destination,
		knownBad,
		services.NewDietExtractor(exec.Runner{}),
		gate,
		journal,
		filecollection.NewRateLimiter(),
	), nil
}
