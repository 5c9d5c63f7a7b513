package main

import "github.com/jfmyers9/jellyfin-rpc/cmd"

func main() {
	cmd.Execute()
}
