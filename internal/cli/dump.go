package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hupe1980/bigramdict"
	"github.com/spf13/cobra"
)

// The dump format is tab separated, one record per line:
//
//	terminal <id> <node pos>
//	bigram   <id> <target> <probability>
//
// Blank lines and lines starting with '#' are ignored on import.
const (
	kindTerminal = "terminal"
	kindBigram   = "bigram"
)

func newDumpCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Write terminals and live bigrams as TSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			w := bufio.NewWriter(cmd.OutOrStdout())
			if err := dump(w, s.dict); err != nil {
				return err
			}
			return w.Flush()
		},
	}
}

func dump(w io.Writer, d *bigramdict.Dictionary) error {
	for _, b := range d.Terminals() {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\n", kindTerminal, int32(b.ID), b.NodePos); err != nil {
			return err
		}
	}
	for _, id := range d.Lists() {
		for _, b := range d.Bigrams(id) {
			if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", kindBigram, int32(id), int32(b.Target), b.Probability); err != nil {
				return err
			}
		}
	}
	return nil
}

// record is one parsed dump line.
type record struct {
	kind   string
	id     bigramdict.TerminalID
	target bigramdict.TerminalID
	value  int64
}

var errSyntax = errors.New("syntax error")

func parseLine(line string) (record, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return record{}, false, nil
	}
	fields := strings.Split(line, "\t")
	ints := func(fs []string) ([]int64, error) {
		out := make([]int64, len(fs))
		for i, f := range fs {
			v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", errSyntax, f, err)
			}
			out[i] = v
		}
		return out, nil
	}
	switch {
	case fields[0] == kindTerminal && len(fields) == 3:
		v, err := ints(fields[1:])
		if err != nil {
			return record{}, false, err
		}
		return record{kind: kindTerminal, id: bigramdict.TerminalID(v[0]), value: v[1]}, true, nil
	case fields[0] == kindBigram && len(fields) == 4:
		v, err := ints(fields[1:])
		if err != nil {
			return record{}, false, err
		}
		return record{kind: kindBigram, id: bigramdict.TerminalID(v[0]), target: bigramdict.TerminalID(v[1]), value: v[2]}, true, nil
	default:
		return record{}, false, fmt.Errorf("%w: unexpected record %q", errSyntax, line)
	}
}
