// seif is a command-line peer for the Seif protocol.
//
// It keeps a local identity and peer directory under ~/.seif, listens for
// inbound sessions, connects to known peers by petname, and browses the
// local network for other listeners.
package main

import (
	"os"

	"github.com/backkem/seif/cmd/seif/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
