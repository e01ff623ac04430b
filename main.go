package main

import "video-stills/cmd"

func main() {
	cmd.Execute()
}
