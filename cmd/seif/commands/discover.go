package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/discovery"
	"github.com/backkem/seif/pkg/store"
)

func discoverCmd() *cobra.Command {
	var (
		timeout time.Duration
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Browse the local network for Seif listeners",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			peers, err := discovery.Browse(ctx)
			if err != nil {
				return err
			}

			for _, p := range peers {
				fmt.Printf("%s\t%s\t%s\n", p.Instance, p.Address, crypto.HexEncode(p.PublicKey))
				if save {
					if err := st.AddAcquaintance(&store.Acquaintance{
						Petname:   p.Instance,
						Address:   p.Address,
						PublicKey: p.PublicKey,
					}); err != nil {
						return err
					}
				}
			}
			if len(peers) == 0 {
				fmt.Println("no peers found")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultBrowseTimeout, "browse duration")
	cmd.Flags().BoolVar(&save, "save", false, "add found peers to the directory under their instance name")
	return cmd
}
