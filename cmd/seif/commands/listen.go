package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backkem/seif/pkg/crypto"
	"github.com/backkem/seif/pkg/discovery"
	"github.com/backkem/seif/pkg/record"
	"github.com/backkem/seif/pkg/seif"
	"github.com/backkem/seif/pkg/transport"
)

func listenCmd() *cobra.Command {
	var (
		address   string
		advertise bool
		instance  string
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Accept inbound sessions and print their messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := st.ReadKeyPair()
			if err != nil {
				return fmt.Errorf("no identity, run `seif init` first: %w", err)
			}

			listener, err := seif.Listen(seif.ListenConfig{
				KeyPair:  kp,
				Listener: &transport.TCP{LoggerFactory: loggerFactory},
				Address:  address,
				OnOpen: func(conn *seif.Conn, peerKey []byte, helloValue, _ any) {
					fmt.Printf("session open: peer %s hello %v\n", crypto.HexEncode(peerKey)[:16], helloValue)
				},
				OnMessage: func(conn *seif.Conn, msg record.Message) {
					printMessage(msg)
				},
				OnClose: func(_ *seif.Conn, err error) {
					if err != nil {
						fmt.Printf("session closed: %v\n", err)
						return
					}
					fmt.Println("session closed")
				},
				LoggerFactory: loggerFactory,
			})
			if err != nil {
				return err
			}
			defer listener.Stop(nil)

			fmt.Printf("listening on %s\n", listener.Addr())

			if advertise {
				_, portStr, err := net.SplitHostPort(listener.Addr())
				if err != nil {
					return err
				}
				port, err := strconv.Atoi(portStr)
				if err != nil {
					return err
				}
				adv, err := discovery.NewAdvertiser(discovery.AdvertiserConfig{
					Instance:      instance,
					Port:          port,
					PublicKey:     kp.PublicKeyBytes(),
					LoggerFactory: loggerFactory,
				})
				if err != nil {
					return err
				}
				defer adv.Shutdown()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			if ctx.Err() == context.Canceled {
				fmt.Println("shutting down")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", ":4004", "listen address")
	cmd.Flags().BoolVar(&advertise, "advertise", false, "advertise this listener via mDNS")
	cmd.Flags().StringVar(&instance, "instance", "", "mDNS instance name")
	return cmd
}

func printMessage(msg record.Message) {
	out := make(map[string]any, len(msg))
	for k, v := range msg {
		if buf, ok := v.([]byte); ok {
			out[k] = fmt.Sprintf("<%d bytes>", len(buf))
			continue
		}
		out[k] = v
	}
	encoded, _ := json.Marshal(out)
	fmt.Printf("message: %s\n", encoded)
}
