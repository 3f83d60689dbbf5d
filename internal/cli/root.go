// Package cli implements the bigramdict command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/bigramdict"
	"github.com/hupe1980/bigramdict/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "bigramdict",
		Short:         "Inspect and serve bigram dictionaries",
		Long:          "bigramdict stores word pair statistics for a prediction dictionary, with snapshots in a blob store and an optional write-ahead log.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(newVersionCommand())
	cmd.AddCommand(newInfoCommand(o))
	cmd.AddCommand(newDumpCommand(o))
	cmd.AddCommand(newImportCommand(o))
	cmd.AddCommand(newSweepCommand(o))
	cmd.AddCommand(newServeCommand(o))
	return cmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// session is an opened dictionary with its store.
type session struct {
	cfg    config.Config
	dict   *bigramdict.Dictionary
	store  *config.Store
	logger *bigramdict.Logger
}

func (o *rootOptions) open(ctx context.Context, logOut io.Writer, extra ...bigramdict.Option) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, bigramdict.WithLogger(logger))
	opts = append(opts, extra...)

	store, err := config.OpenStore(ctx, cfg.Store, logger.Logger)
	if err != nil {
		return nil, err
	}
	dict, err := bigramdict.Open(ctx, store, opts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open dictionary: %w", err), store.Close())
	}
	return &session{cfg: cfg, dict: dict, store: store, logger: logger}, nil
}

func (s *session) Close() error {
	return errors.Join(s.dict.Close(), s.store.Close())
}
