package main

import "nftclaim/cmd/distctl/cmd"

func main() {
	cmd.Execute()
}
