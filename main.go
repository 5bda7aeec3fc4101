package main

import (
	"github.com/Eric-A99/discogs-preview/cmd/discogs-preview"
)

func main() {
	cmd.Execute()
}
