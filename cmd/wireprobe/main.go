// Command wireprobe is a small CLI that exercises a peer's ping/pong
// latency engine against a remote endpoint, for manual testing and
// diagnostics.
package main

import "github.com/nexbridge/wiretransport/cmd/wireprobe/cmd"

func main() {
	cmd.Execute()
}
