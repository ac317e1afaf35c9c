package main

import "github.com/napolipulse/pulse-ingest/cmd"

func main() {
	cmd.Execute()
}
