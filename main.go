package main

import "github.com/withobsrvr/ttp-consumer/cmd"

func main() {
	cmd.Execute()
}
