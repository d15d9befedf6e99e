package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsIngest/internal/app"
	"NewsIngest/internal/config"
	"NewsIngest/internal/logging"
)

var scrapeSourceID string

var rootCmd = &cobra.Command{
	Use:   "newsingest",
	Short: "Multilingual news ingestion pipeline",
	Long:  `Scrapes configured RSS and API sources, classifies and normalizes articles, and drives them through moderation and publishing via a durable job queue.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the worker pool and the recurring scrape scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := newApplication(ctx)
		if err != nil {
			return err
		}
		defer application.Close()

		return application.Run(ctx)
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Enqueue a scraping job (all active sources by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueue(func(ctx context.Context, a *app.Application) (string, error) {
			return a.Triggers().EnqueueScrape(ctx, scrapeSourceID)
		})
	},
}

var moderateCmd = &cobra.Command{
	Use:   "moderate <article-id>",
	Short: "Enqueue a moderation job for one article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueue(func(ctx context.Context, a *app.Application) (string, error) {
			return a.Triggers().EnqueueModerate(ctx, args[0])
		})
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <article-id>",
	Short: "Enqueue a publishing job for one article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return enqueue(func(ctx context.Context, a *app.Application) (string, error) {
			return a.Triggers().EnqueuePublish(ctx, args[0])
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <sources.yaml>",
	Short: "Upsert sources from a YAML definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		application, err := newApplication(ctx)
		if err != nil {
			return err
		}
		defer application.Close()

		n, err := application.SeedSources(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d source(s)\n", n)
		return nil
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Finalize job logs and deliveries left running by a dead process",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		application, err := newApplication(ctx)
		if err != nil {
			return err
		}
		defer application.Close()

		n, err := application.RecoverStale(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("recovered %d stale job log(s)\n", n)
		return nil
	},
}

func newApplication(ctx context.Context) (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(ctx, cfg, logger)
}

func enqueue(fn func(context.Context, *app.Application) (string, error)) error {
	ctx := context.Background()
	application, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	id, err := fn(ctx, application)
	if err != nil {
		return err
	}
	fmt.Printf("enqueued job %s\n", id)
	return nil
}

func main() {
	scrapeCmd.Flags().StringVar(&scrapeSourceID, "source", "", "Scrape only this source ID")
	rootCmd.AddCommand(runCmd, scrapeCmd, moderateCmd, publishCmd, seedCmd, recoverCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
