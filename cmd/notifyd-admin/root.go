package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/notifyd/internal/cachekey"
	"github.com/target/notifyd/internal/domain/model"
	"github.com/target/notifyd/internal/service"
)

type redispatcher interface {
	Redispatch(ctx context.Context, jobID string) (*model.Job, error)
}

type sweeper interface {
	SweepOnce(ctx context.Context) (service.SweepResult, error)
}

type subscriberInvalidator interface {
	InvalidateSubscriber(ctx context.Context, d cachekey.Dimensions) error
}

type feedCounter interface {
	GetCount(ctx context.Context, req model.FeedCountRequest) (model.FeedCountResult, error)
}

type detailLister interface {
	ListByJob(ctx context.Context, jobID string) ([]*model.ExecutionDetail, error)
}

// adminDeps holds what the subcommands operate on. Fields not needed by a command may be nil.
type adminDeps struct {
	Redispatcher redispatcher
	Sweeper      sweeper
	Invalidator  subscriberInvalidator
	FeedCount    feedCounter
	Details      detailLister
	Migrate      func(ctx context.Context) error
	Pending      func(ctx context.Context) ([]string, error)
	Close        func() error
}

// depsLoader builds adminDeps. withServices=false only needs the database.
type depsLoader func(ctx context.Context, withServices bool) (*adminDeps, error)

var errNoCache = errors.New("no cache backend configured")

func newRootCmd(load depsLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "notifyd-admin",
		Short:         "Administrative commands for the notification job pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Duration("timeout", 30*time.Second, "Overall command timeout")

	root.AddCommand(
		newMigrateCmd(load),
		newRedispatchCmd(load),
		newInvalidateFeedCmd(load),
		newCountCmd(load),
		newExecutionDetailsCmd(load),
	)
	return root
}

// withDeps loads dependencies under the command timeout and releases them afterwards.
func withDeps(cmd *cobra.Command, load depsLoader, withServices bool, fn func(ctx context.Context, deps *adminDeps) error) (err error) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	deps, err := load(ctx, withServices)
	if err != nil {
		return err
	}
	defer func() {
		if deps.Close == nil {
			return
		}
		if cerr := deps.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close: %w", cerr))
		}
	}()
	return fn(ctx, deps)
}
