package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/backkem/seif/pkg/record"
	"github.com/backkem/seif/pkg/seif"
	"github.com/backkem/seif/pkg/session"
	"github.com/backkem/seif/pkg/store"
	"github.com/backkem/seif/pkg/transport"
)

func connectCmd() *cobra.Command {
	var (
		message     string
		status      bool
		dialTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "connect <petname>",
		Short: "Connect to a known peer and send a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := st.ReadKeyPair()
			if err != nil {
				return fmt.Errorf("no identity, run `seif init` first: %w", err)
			}
			peer, err := st.ReadAcquaintance(args[0])
			if err != nil {
				return fmt.Errorf("unknown peer %q: %w", args[0], err)
			}

			var payload record.Message
			if err := json.Unmarshal([]byte(message), &payload); err != nil {
				return fmt.Errorf("message must be a JSON object: %w", err)
			}

			opened := make(chan *seif.Conn, 1)
			closed := make(chan error, 1)

			connectOnce := func() (*seif.Client, error) {
				return seif.Connect(seif.ConnectConfig{
					KeyPair:         kp,
					Dialer:          &transport.TCP{LoggerFactory: loggerFactory},
					Address:         peer.Address,
					RemotePublicKey: peer.PublicKey,
					OnOpen:          func(conn *seif.Conn) { opened <- conn },
					OnMessage: func(_ *seif.Conn, msg record.Message) {
						printMessage(msg)
					},
					OnClose: func(_ *seif.Conn, reason error, red *session.Redirect) {
						if red != nil {
							fmt.Printf("redirected to %s (permanent=%v)\n", red.Address, red.Permanent)
							if red.Permanent {
								st.AddAcquaintance(&store.Acquaintance{
									Petname:   peer.Petname,
									Address:   red.Address,
									PublicKey: red.PublicKey,
								})
							}
							return
						}
						closed <- reason
					},
					LoggerFactory: loggerFactory,
				})
			}

			// Retry the initial dial; the protocol itself never
			// reconnects.
			policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
			client, err := backoff.RetryWithData(connectOnce, policy)
			if err != nil {
				return err
			}
			defer client.Close(nil)

			ctx, cancel := context.WithTimeout(cmd.Context(), dialTimeout)
			defer cancel()

			var conn *seif.Conn
			select {
			case conn = <-opened:
			case err := <-closed:
				return fmt.Errorf("connection failed: %v", err)
			case <-ctx.Done():
				return fmt.Errorf("handshake timed out")
			}

			if status {
				if err := conn.StatusSend(payload); err != nil {
					return err
				}
				fmt.Println("sent (no acknowledgement requested)")
				return nil
			}

			res, err := conn.Send(payload)
			if err != nil {
				return err
			}
			if err := res.Wait(ctx); err != nil {
				return fmt.Errorf("not acknowledged: %v", err)
			}
			fmt.Println("acknowledged")
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "{}", "JSON object to send")
	cmd.Flags().BoolVar(&status, "status", false, "fire-and-forget instead of acknowledged send")
	cmd.Flags().DurationVar(&dialTimeout, "timeout", 10*time.Second, "handshake and acknowledgement timeout")
	return cmd
}
