package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/elmesiashu/tenseishitara/app/jobs"
	"github.com/elmesiashu/tenseishitara/config"
	"github.com/elmesiashu/tenseishitara/pkg/cache"
	"github.com/elmesiashu/tenseishitara/pkg/queue"
)

var queueWorkersFlag int

// storefront queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := bootDB()
		if err != nil {
			return err
		}
		queue.UseDB(db)
		jobs.Init(db)

		if config.QueueDriver() == "redis" {
			c, err := cache.Connect(ctx)
			if err == nil && c.Client() != nil {
				queue.SetDriver(queue.NewRedisDriver(c.Client()))
			}
		}

		workers := queueWorkersFlag
		if workers < 1 {
			workers = 5
		}

		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		queue.StartWorkers(ctx, workers)

		<-ctx.Done()
		fmt.Println("\nQueue worker stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 5, "Number of concurrent workers")
}
