package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/store"
)

func peersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Manage the peer directory",
	}
	cmd.AddCommand(peersAddCmd(), peersRemoveCmd(), peersListCmd())
	return cmd
}

func peersAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <petname> <address> <public-key-hex>",
		Short: "Add or update a peer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawKey, err := crypto.HexDecode(args[2])
			if err != nil {
				return fmt.Errorf("bad public key: %w", err)
			}
			if _, err := crypto.ImportPublicKey(rawKey); err != nil {
				return err
			}

			return st.AddAcquaintance(&store.Acquaintance{
				Petname:   args[0],
				Address:   args[1],
				PublicKey: rawKey,
			})
		},
	}
}

func peersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <petname>",
		Short: "Remove a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.RemoveAcquaintance(args[0])
		},
	}
}

func peersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := st.ListAcquaintances()
			if err != nil {
				return err
			}
			for _, a := range all {
				fmt.Printf("%s\t%s\t%s\n", a.Petname, a.Address, crypto.HexEncode(a.PublicKey))
			}
			return nil
		},
	}
}
