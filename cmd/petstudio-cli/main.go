// PetStudio CLI — инструмент командной строки для управления заказами.
//
// Использование:
//
//	petstudio [--json] order <subcommand> [flags]
//
// Команды:
//
//	order  Управление заказами (create, list, show, check,
//	       restart, restart-inference, upload-results)
//
// CLI работает напрямую с базой данных и провайдером.
// Подключение к БД берётся из DB_URL, провайдер —
// из PROVIDER_API_URL / PROVIDER_API_TOKEN.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devgould/petstudio/internal/cli"
	"github.com/devgould/petstudio/internal/orchestrator"
	"github.com/devgould/petstudio/internal/provider"
	"github.com/devgould/petstudio/internal/repo"
	"github.com/devgould/petstudio/internal/storage"
	"github.com/devgould/petstudio/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "petstudio",
		Short:         "PetStudio CLI — order fulfillment admin tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewOrderCmd(buildDeps, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps подключается к БД и собирает оркестратор для команды.
// Object storage опционален: без него команды работают, но артефакты
// не сохраняются. События не публикуются — CLI не подключается к MQ,
// уведомления остаются за сервисами.
func buildDeps(ctx context.Context) (*cli.Deps, error) {
	logger := telemetry.SetupLogger()

	pool, err := repo.NewPool(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	orderRepo := repo.NewOrderRepo(pool)
	subJobRepo := repo.NewSubJobRepo(pool)
	artifactRepo := repo.NewArtifactRepo(pool)

	cfg := orchestrator.Config{
		Orders:    orderRepo,
		SubJobs:   subJobRepo,
		Artifacts: artifactRepo,
		Provider:  provider.NewFromEnv(),
		Logger:    logger,
	}

	if store, err := storage.NewS3Store(ctx); err == nil {
		cfg.Store = store
	}

	return &cli.Deps{
		Orders:    orderRepo,
		SubJobs:   subJobRepo,
		Artifacts: artifactRepo,
		Orch:      orchestrator.New(cfg),
		Close:     pool.Close,
	}, nil
}
