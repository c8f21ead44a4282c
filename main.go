package main

import "github.com/hivecache/hivecache/cmd"

func main() {
	cmd.Execute()
}
