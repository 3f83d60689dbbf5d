package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCommand(o *rootOptions) *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a maintenance sweep and save a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.dict.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "swept %d lists: %d live, %d removed\n", st.Lists, st.Live, st.Removed)
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
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not save a snapshot after sweeping")
	return cmd
}
