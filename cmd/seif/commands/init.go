package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/store"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the local identity key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := st.ReadKeyPair(); err == nil {
				return errors.New("identity already exists")
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			kp, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			if err := st.WriteKeyPair(kp); err != nil {
				return err
			}

			fmt.Printf("Identity created.\nPublic key: %s\n", crypto.HexEncode(kp.PublicKeyBytes()))
			return nil
		},
	}
}
