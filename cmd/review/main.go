// Command review is a terminal client for the moderation API. It renders the
// submission queue through the view store, applies actions optimistically and
// can watch the queue on the configured refresh interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fanvue/moderation-api/internal/models"
	"github.com/fanvue/moderation-api/internal/view"
	"github.com/fanvue/moderation-api/pkg/config"
	"github.com/fanvue/moderation-api/pkg/logger"
)

func main() {
	var (
		base      = flag.String("base", "http://localhost:8080/api/v1", "API base URL including prefix")
		moderator = flag.String("moderator", "cli", "moderator id stamped onto actions")
		search    = flag.String("search", "", "substring match on name or description")
		statuses  = flag.String("status", "", "comma-separated status filter")
		sortBy    = flag.String("sort-by", "submittedAt", "sort key: name, submittedAt or rating")
		sortOrder = flag.String("sort-order", "desc", "asc or desc")
		appID     = flag.String("id", "", "submission to act on")
		action    = flag.String("action", "", "action to apply: approve, reject or flag")
		watch     = flag.Bool("watch", false, "keep polling and reprinting the queue")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	filter := models.ListFilter{
		Search:    *search,
		SortBy:    *sortBy,
		SortOrder: *sortOrder,
	}
	for _, raw := range strings.Split(*statuses, ",") {
		if status, ok := models.ParseStatus(strings.TrimSpace(raw)); ok {
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	client := view.NewClient(*base, *moderator, nil)
	store := view.NewStore(client, client, cfg.Moderation.RefreshInterval, logr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *action != "" {
		act, ok := models.ParseAction(*action)
		if !ok {
			log.Fatalf("unknown action %q", *action)
		}
		if *appID == "" {
			log.Fatal("-id is required with -action")
		}
		sub, err := store.Submit(ctx, *appID, act)
		if err != nil {
			logr.Fatal("action failed", zap.String("app_id", *appID), zap.Error(err))
		}
		fmt.Printf("%s -> %s (updated %s)\n", sub.Name, sub.Status, sub.UpdatedAt.Format(time.RFC3339))
		return
	}

	if err := store.Load(ctx, filter); err != nil {
		logr.Fatal("failed to load submissions", zap.Error(err))
	}
	printQueue(store, filter)

	if !*watch {
		return
	}

	go store.Run(ctx)
	ticker := time.NewTicker(cfg.Moderation.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printQueue(store, filter)
		}
	}
}

func printQueue(store *view.Store, filter models.ListFilter) {
	subs := store.Submissions(filter)
	fmt.Printf("%-38s %-24s %-10s %-14s %s\n", "ID", "NAME", "STATUS", "CATEGORY", "SUBMITTED")
	for _, sub := range subs {
		fmt.Printf("%-38s %-24s %-10s %-14s %s\n",
			sub.ID, truncate(sub.Name, 24), sub.Status, sub.Category,
			sub.SubmittedAt.Format("2006-01-02 15:04"))
	}
	if store.HasNextPage(filter) {
		fmt.Println("... more pages available")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
