package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInfoCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print dictionary statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			st := s.dict.Stats()
			mode := "static"
			if st.Decay {
				mode = "decay"
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "store\t%s\n", s.cfg.Store.Type)
			fmt.Fprintf(tw, "mode\t%s\n", mode)
			fmt.Fprintf(tw, "version\t%d\n", st.Version)
			fmt.Fprintf(tw, "lsn\t%d\n", st.LSN)
			fmt.Fprintf(tw, "terminals\t%d\n", st.Terminals)
			fmt.Fprintf(tw, "lists\t%d\n", st.Lists)
			fmt.Fprintf(tw, "bigrams\t%d\n", st.Bigrams)
			fmt.Fprintf(tw, "content bytes\t%d\n", st.ContentBytes)
			fmt.Fprintf(tw, "abandoned bytes\t%d\n", st.AbandonedBytes)
			fmt.Fprintf(tw, "wal records\t%d\n", st.WALRecords)
			return tw.Flush()
		},
	}
}
