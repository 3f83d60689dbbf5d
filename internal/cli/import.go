package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/bigramdict"
	"github.com/spf13/cobra"
)

func newImportCommand(o *rootOptions) *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Apply a TSV dump to the dictionary and save a snapshot",
		Long:  "Reads records in the dump format from file, or stdin when file is omitted or \"-\".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			s, err := o.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			terms, bigrams, err := importRecords(cmd.Context(), s.dict, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d terminals, %d bigrams\n", terms, bigrams)
			if noSave {
				return nil
			}
			m, err := s.dict.Save(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved version %d\n", m.Version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not save a snapshot after importing")
	return cmd
}

func importRecords(ctx context.Context, d *bigramdict.Dictionary, r io.Reader) (terms, bigrams int, err error) {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		rec, ok, err := parseLine(sc.Text())
		if err != nil {
			return terms, bigrams, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		switch rec.kind {
		case kindTerminal:
			err = d.AddTerminal(ctx, rec.id, bigramdict.Pos(rec.value))
			terms++
		case kindBigram:
			_, err = d.AddBigram(ctx, rec.id, rec.target, bigramdict.Probability(rec.value))
			bigrams++
		}
		if err != nil {
			return terms, bigrams, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return terms, bigrams, sc.Err()
}
