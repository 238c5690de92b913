package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/cmd/recipetune/cliconfig"
	finetunecmder "github.com/papercomputeco/recipetune/cmd/recipetune/finetune"
	generatecmder "github.com/papercomputeco/recipetune/cmd/recipetune/generate"
	inspectcmder "github.com/papercomputeco/recipetune/cmd/recipetune/inspect"
	mergecmder "github.com/papercomputeco/recipetune/cmd/recipetune/merge"
	pushcmder "github.com/papercomputeco/recipetune/cmd/recipetune/push"
	runcmder "github.com/papercomputeco/recipetune/cmd/recipetune/run"
	servecmder "github.com/papercomputeco/recipetune/cmd/recipetune/serve"
	"github.com/papercomputeco/recipetune/pkg/logger"
)

const rootLongDesc string = `recipetune builds an instruction-tuning dataset from the HUMMUS recipe
collection and fine-tunes a model on it.

Phase 1 (generate) turns the recipe CSV into single-turn and multi-turn
examples. Phase 2 (finetune) converts them to chat training records and runs
a fine-tuning job against an OpenAI-compatible API. Settings are read from
recipetune.toml; flags override it.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "recipetune",
		Short:         "Recipe recommendation fine-tuning pipeline",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cliconfig.AddPersistentFlags(cmd)

	cmd.AddCommand(generatecmder.NewGenerateCmd())
	cmd.AddCommand(finetunecmder.NewFinetuneCmd())
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(inspectcmder.NewInspectCmd())
	cmd.AddCommand(mergecmder.NewMergeCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(pushcmder.NewPushCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logger.NewLogger(false).Fatal("recipetune failed", zap.Error(err))
	}
}
